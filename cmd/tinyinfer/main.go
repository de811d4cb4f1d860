package main

import (
	"fmt"
	"os"

	_ "github.com/itohio/tinyinfer/pkg/kernel" // register the operator catalog
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
