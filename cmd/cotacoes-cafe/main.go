package main

import (
	"github.com/opedromartinss/cotacoes-cafe/internal/cli"
)

func main() {
	cli.Execute()
}
