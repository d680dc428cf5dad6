// dewberry is a command-line tool for working with dewberry payloads.
//
// Subcommands:
//
//	decode   decode a payload and print one line per top-level value
//	encode   encode a JSON document as a payload
//	inspect  validate a payload and report structure statistics
//	canon    rewrite a payload into canonical minimal form
//	serve    run the payload inspection gRPC service
//
// Payload input comes from --hex, --in FILE, or stdin.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/blockberries/dewberry"
	dewgrpc "github.com/blockberries/dewberry/grpc"
	"github.com/blockberries/dewberry/inspect"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "dewberry: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return fmt.Errorf("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "decode":
		return cmdDecode(rest)
	case "encode":
		return cmdEncode(rest)
	case "inspect":
		return cmdInspect(rest)
	case "canon":
		return cmdCanon(rest)
	case "serve":
		return cmdServe(rest)
	case "help", "-h", "--help":
		usage(os.Stdout)
		return nil
	default:
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: dewberry <command> [flags]

Commands:
  decode   decode a payload and print one line per top-level value
  encode   encode a JSON document as a payload
  inspect  validate a payload and report structure statistics
  canon    rewrite a payload into canonical minimal form
  serve    run the payload inspection gRPC service

Run "dewberry <command> --help" for command flags.
`)
}

// ---------------------------------------------------------------------------
// Input plumbing
// ---------------------------------------------------------------------------

// inputFlags wires the shared payload source flags into a flag set.
type inputFlags struct {
	hexArg string
	inFile string
}

func (in *inputFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&in.hexArg, "hex", "", "payload as a hex string")
	fs.StringVar(&in.inFile, "in", "", "read payload from this file (default: stdin)")
}

func (in *inputFlags) read() ([]byte, error) {
	if in.hexArg != "" {
		data, err := hex.DecodeString(strings.TrimPrefix(in.hexArg, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parsing --hex: %w", err)
		}
		return data, nil
	}
	if in.inFile != "" {
		data, err := os.ReadFile(in.inFile)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return data, nil
}

func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	fs.SortFlags = false
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return true, nil
		}
		return false, err
	}
	if extra := fs.Args(); len(extra) > 0 {
		return false, fmt.Errorf("unexpected argument: %s", extra[0])
	}
	return false, nil
}

// ---------------------------------------------------------------------------
// decode
// ---------------------------------------------------------------------------

func cmdDecode(args []string) error {
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	var in inputFlags
	in.addFlags(fs)
	depth := fs.Int("max-depth", inspect.DefaultMaxDepth, "maximum nesting depth accepted")
	if done, err := parseFlags(fs, args); done || err != nil {
		return err
	}

	data, err := in.read()
	if err != nil {
		return err
	}
	out, err := inspect.Inspector{MaxDepth: *depth}.Diagnose(data)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// ---------------------------------------------------------------------------
// encode
// ---------------------------------------------------------------------------

func cmdEncode(args []string) error {
	fs := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	var in inputFlags
	fs.StringVar(&in.inFile, "in", "", "read JSON from this file (default: stdin)")
	raw := fs.Bool("raw", false, "write raw payload bytes instead of hex")
	if done, err := parseFlags(fs, args); done || err != nil {
		return err
	}

	var src io.Reader = os.Stdin
	if in.inFile != "" {
		f, err := os.Open(in.inFile)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	dec := json.NewDecoder(src)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	v, err := dewberry.FromNative(numbersToIntegers(doc))
	if err != nil {
		return err
	}
	payload, err := dewberry.NewEncoder().WriteValue(v).Finalize()
	if err != nil {
		return err
	}
	if *raw {
		_, err = os.Stdout.Write(payload)
		return err
	}
	fmt.Printf("%x\n", payload)
	return nil
}

// numbersToIntegers rewrites json.Number leaves into integer types so
// the tree converts without float truncation, whatever the magnitude.
func numbersToIntegers(x any) any {
	switch t := x.(type) {
	case json.Number:
		i, ok := new(big.Int).SetString(t.String(), 10)
		if !ok {
			// Not an integer literal; let the conversion report it.
			f, _ := t.Float64()
			return f
		}
		return i
	case []any:
		for i := range t {
			t[i] = numbersToIntegers(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = numbersToIntegers(t[k])
		}
		return t
	default:
		return x
	}
}

// ---------------------------------------------------------------------------
// inspect
// ---------------------------------------------------------------------------

func cmdInspect(args []string) error {
	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	var in inputFlags
	in.addFlags(fs)
	depth := fs.Int("max-depth", inspect.DefaultMaxDepth, "maximum nesting depth accepted")
	if done, err := parseFlags(fs, args); done || err != nil {
		return err
	}

	data, err := in.read()
	if err != nil {
		return err
	}
	ins := inspect.Inspector{MaxDepth: *depth}
	st, err := ins.Stats(data)
	if err != nil {
		return err
	}
	canonical, err := ins.IsCanonical(data)
	if err != nil {
		return err
	}

	fmt.Printf("bytes:      %d\n", st.Bytes)
	fmt.Printf("values:     %d\n", st.Values)
	fmt.Printf("top-level:  %d\n", st.TopLevel)
	fmt.Printf("max depth:  %d\n", st.MaxDepth)
	fmt.Printf("canonical:  %v\n", canonical)
	for kind := dewberry.KindNil; kind <= dewberry.KindMap; kind++ {
		if n := st.PerKind[kind]; n > 0 {
			fmt.Printf("  %-8s %d\n", kind, n)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// canon
// ---------------------------------------------------------------------------

func cmdCanon(args []string) error {
	fs := pflag.NewFlagSet("canon", pflag.ContinueOnError)
	var in inputFlags
	in.addFlags(fs)
	raw := fs.Bool("raw", false, "write raw payload bytes instead of hex")
	check := fs.Bool("check", false, "exit nonzero if the payload is not already canonical")
	depth := fs.Int("max-depth", inspect.DefaultMaxDepth, "maximum nesting depth accepted")
	if done, err := parseFlags(fs, args); done || err != nil {
		return err
	}

	data, err := in.read()
	if err != nil {
		return err
	}
	canonical, changed, err := inspect.Inspector{MaxDepth: *depth}.Canonicalize(data)
	if err != nil {
		return err
	}
	if *check {
		if changed {
			return fmt.Errorf("payload is not canonical")
		}
		return nil
	}
	if *raw {
		_, err = os.Stdout.Write(canonical)
		return err
	}
	fmt.Printf("%x\n", canonical)
	return nil
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func cmdServe(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	listen := fs.String("listen", "localhost:7411", "gRPC listen address")
	depth := fs.Int("max-depth", inspect.DefaultMaxDepth, "maximum nesting depth accepted")
	if done, err := parseFlags(fs, args); done || err != nil {
		return err
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}
	srv := dewgrpc.NewServer(inspect.Inspector{MaxDepth: *depth})
	fmt.Fprintf(os.Stderr, "dewberry: payload service listening on %s\n", lis.Addr())
	return srv.Serve(lis)
}
