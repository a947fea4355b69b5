package main

import (
	"github.com/ColonelBlimp/keydecoder/cmd"
	"github.com/ColonelBlimp/keydecoder/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
