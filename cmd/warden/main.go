// Command warden validates a JSON document against a YAML schema definition.
//
// Usage:
//
//	warden -definition schema.yaml -input data.json
//	cat data.json | warden -definition schema.yaml -input -
//	warden -definition schema.yaml -input events.ndjson -lines
//
// The command prints one of the two outcome markers and exits 0 when the
// document conforms, 1 when it breaks schema rules, and 2 when the inputs
// are unusable (missing flags, a definition that does not compile, or a
// document that is not JSON).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/zero-day-ai/warden/document"
	"github.com/zero-day-ai/warden/schema"
	"github.com/zero-day-ai/warden/validate"
)

// Exit codes. Violations and unusable inputs are distinct failures.
const (
	exitValid   = 0
	exitInvalid = 1
	exitUsage   = 2
)

const passMarker = "✅✅ The provided schema matches the data"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("warden", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		definition   = fs.String("definition", "", "file with the schema definition (YAML)")
		input        = fs.String("input", "", "file with the data to verify (JSON), or - for stdin")
		lines        = fs.Bool("lines", false, "treat the input as newline-delimited JSON and validate each line")
		maxDepth     = fs.Int("max-depth", validate.DefaultMaxDepth, "maximum document nesting depth")
		strictInts   = fs.Bool("strict-integers", false, "reject fractional-typed numbers such as 2.0 against Integer")
		allowMissing = fs.Bool("allow-missing", false, "permit declared object fields to be absent")
	)

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: warden -definition <schema.yaml> -input <data.json|->")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *definition == "" || *input == "" {
		fs.Usage()
		return exitUsage
	}

	root, err := schema.ParseFile(*definition)
	if err != nil {
		fmt.Fprintf(stderr, "❌❌ %v\n", err)
		return exitUsage
	}

	opts := []validate.Option{validate.WithMaxDepth(*maxDepth)}
	if *strictInts {
		opts = append(opts, validate.WithStrictIntegers())
	}
	if *allowMissing {
		opts = append(opts, validate.WithAllowMissingFields())
	}
	v := validate.New(opts...)

	var in io.Reader
	if *input == "-" {
		in = stdin
	} else {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(stderr, "❌❌ %v\n", err)
			return exitUsage
		}
		defer f.Close()
		in = f
	}

	if *lines {
		return runLines(v, root, in, stdout, stderr)
	}

	value, err := document.DecodeReader(in)
	if err != nil {
		fmt.Fprintf(stderr, "❌❌ %v\n", err)
		return exitUsage
	}

	report := v.Validate(root, value)
	if !report.OK() {
		fmt.Fprintf(stdout, "❌❌ %s\n", report)
		return exitInvalid
	}

	fmt.Fprintln(stdout, passMarker)
	return exitValid
}

// runLines validates newline-delimited JSON: one document per line, blank
// lines skipped. Lines validate concurrently but report in input order.
func runLines(v *validate.Validator, root *schema.Node, in io.Reader, stdout, stderr io.Writer) int {
	var (
		values   []document.Value
		lineNums []int
	)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		value, err := document.Decode([]byte(line))
		if err != nil {
			fmt.Fprintf(stderr, "❌❌ line %d: %v\n", lineNum, err)
			return exitUsage
		}
		values = append(values, value)
		lineNums = append(lineNums, lineNum)
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(stderr, "❌❌ %v\n", err)
		return exitUsage
	}

	reports, err := validate.All(context.Background(), v, root, values, runtime.NumCPU())
	if err != nil {
		fmt.Fprintf(stderr, "❌❌ %v\n", err)
		return exitUsage
	}

	invalid := 0
	for i, report := range reports {
		if !report.OK() {
			invalid++
			fmt.Fprintf(stdout, "❌❌ line %d: %s\n", lineNums[i], report)
		}
	}
	if invalid > 0 {
		return exitInvalid
	}

	fmt.Fprintln(stdout, passMarker)
	return exitValid
}
