package main

import "github.com/spec-kit/product-links/internal/cmd"

func main() {
	cmd.Execute()
}
