// dupkernel-repl is an interactive CLI for inspecting a combined index
// file produced by `dupkernel midx`.
//
// Usage:
//
//	dupkernel-repl --bits <n> <combined-index-file>
//
// Commands (in REPL):
//
//	contains <hex-fingerprint>   Binary-search for a fingerprint, print its name if found
//	lookup <index>               Print the fingerprint and name at a given position
//	fanout <prefix>              Print the fan-out table entry for a prefix
//	stats                        Show dedup count and fan-out width
//	help                         Show this help
//	exit / quit / q              Exit
package main

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/peterh/liner"

	"github.com/meeee/dupkernel/pkg/bloom"
	"github.com/meeee/dupkernel/pkg/midx"
)

func main() {
	bits := flag.IntP("bits", "b", 8, "Fan-out prefix width the index was built with")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: dupkernel-repl --bits <n> <combined-index-file>")
		os.Exit(1)
	}

	di, err := midx.OpenDiskIndex(args[0], *bits)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	defer func() { _ = di.Close() }()

	repl := &REPL{index: di, input: di.AsInput()}
	if err := repl.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// REPL is the interactive command loop over one opened combined index.
type REPL struct {
	index *midx.DiskIndex
	input midx.InputIndex
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".dupkernel_repl_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Printf("dupkernel-repl (bits=%d, count=%d)\n", r.index.Bits, r.index.Count())
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("dupkernel> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "contains":
			r.cmdContains(args)

		case "lookup":
			r.cmdLookup(args)

		case "fanout":
			r.cmdFanout(args)

		case "stats":
			r.cmdStats()

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = r.liner.WriteHistory(f)
			_ = f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{"contains", "lookup", "fanout", "stats", "help", "exit", "quit", "q"}

	var completions []string

	lower := strings.ToLower(line)

	for _, c := range commands {
		if strings.HasPrefix(c, lower) {
			completions = append(completions, c)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println(`Commands:
  contains <hex-fingerprint>   Binary-search for a fingerprint
  lookup <index>                Print the fingerprint and name at a position
  fanout <prefix>               Print the fan-out table entry for a prefix
  stats                         Show dedup count and fan-out width
  help                          Show this help
  exit / quit / q               Exit`)
}

func (r *REPL) cmdContains(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: contains <hex-fingerprint>")

		return
	}

	sha, err := hex.DecodeString(args[0])
	if err != nil || len(sha) != bloom.FingerprintSize {
		fmt.Println("fingerprint must be 40 hex characters (20 bytes)")

		return
	}

	count := r.input.Count

	idx := sort.Search(count, func(i int) bool {
		off := r.input.ShaOffset + i*bloom.FingerprintSize

		return bytes.Compare(r.input.Map[off:off+bloom.FingerprintSize], sha) >= 0
	})

	if idx < count {
		off := r.input.ShaOffset + idx*bloom.FingerprintSize
		if bytes.Equal(r.input.Map[off:off+bloom.FingerprintSize], sha) {
			fmt.Printf("present at index %d, name=%d\n", idx, r.nameAt(idx))

			return
		}
	}

	fmt.Println("absent")
}

func (r *REPL) cmdLookup(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: lookup <index>")

		return
	}

	i, err := strconv.Atoi(args[0])
	if err != nil || i < 0 || i >= r.input.Count {
		fmt.Printf("index out of range [0, %d)\n", r.input.Count)

		return
	}

	off := r.input.ShaOffset + i*bloom.FingerprintSize
	fmt.Printf("%s name=%d\n", hex.EncodeToString(r.input.Map[off:off+bloom.FingerprintSize]), r.nameAt(i))
}

func (r *REPL) nameAt(i int) uint32 {
	if r.input.NameOffset < 0 {
		return r.input.NameBase
	}

	off := r.input.NameOffset + i*4

	return r.input.NameBase + binary.BigEndian.Uint32(r.input.Map[off:off+4])
}

func (r *REPL) cmdFanout(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: fanout <prefix>")

		return
	}

	p, err := strconv.Atoi(args[0])
	fanoutSize := 1 << uint(r.index.Bits)

	if err != nil || p < 0 || p >= fanoutSize {
		fmt.Printf("prefix out of range [0, %d)\n", fanoutSize)

		return
	}

	off := midx.HeaderSize + p*4
	fmt.Println(binary.BigEndian.Uint32(r.index.Map[off:]))
}

func (r *REPL) cmdStats() {
	fmt.Printf("bits=%d count=%d\n", r.index.Bits, r.index.Count())
}
