package main

import (
	"fmt"
	"os"

	"github.com/k0kubun/pp/v3"

	"gosubleq/pkg/asm"
	"gosubleq/pkg/image"
	"gosubleq/pkg/utils"
)

const testSource = `value_1: db -16
value_2: db -8
pos:     equ 30

    sub [pos], [value_1]
    sub [pos], [value_2]
    hlt
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := utils.ReadSource(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = data
	}

	fmt.Printf("Source:\n%s\n", src)

	// Lex
	tokens, err := asm.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse
	prog, err := asm.Parse(tokens)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}

	fmt.Println("Items")
	for _, it := range prog.Items {
		fmt.Println(" ", it)
	}
	fmt.Println()
	fmt.Println("AST")
	pp.Println(prog)

	// Assemble
	res, err := asm.Assemble(src, asm.DefaultOptions())
	if err != nil {
		fmt.Fprintln(os.Stderr, "assembly error:", err)
		os.Exit(1)
	}

	fmt.Println("Layout")
	fmt.Println(" ", res.Layout)
	fmt.Println()
	res.Symbols.Table(os.Stdout)
	fmt.Println()

	fmt.Println("Literal pool")
	pp.Println(res.Symbols.Literals())

	fmt.Println("Triples")
	for _, tr := range res.Triples {
		fmt.Printf("%s    ; %d: %s\n", tr, tr.Line, tr.Source)
	}
	fmt.Println()

	fmt.Println("Listing")
	if err := image.WriteListing(os.Stdout, res.Image); err != nil {
		fmt.Fprintln(os.Stderr, "listing error:", err)
		os.Exit(1)
	}
}
