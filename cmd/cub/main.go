package main

import "github.com/BelikanM/cub/internal/cmd"

func main() {
	cmd.Execute()
}
