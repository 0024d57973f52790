package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pharmaguard-client/internal/cli"
	"github.com/pharmaguard-client/internal/domain"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
