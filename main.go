package main

import (
	"github.com/ColonelBlimp/cwlistener/cmd"
	"github.com/ColonelBlimp/cwlistener/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
