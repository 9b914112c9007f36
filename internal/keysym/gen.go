//go:build ignore

// gen writes names_gen.go from the X11 keysymdef.h and XF86keysym.h headers.
//
//	go run gen.go [-keysymdef path] [-xf86 path] [-o names_gen.go]
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
)

// evdevBase is the _EVDEVK macro offset in XF86keysym.h.
const evdevBase = 0x10081000

var (
	keysymdefRe = regexp.MustCompile(`^#define XK_(\w+)\s+0x([0-9a-fA-F]+)`)
	xf86Re      = regexp.MustCompile(`^#define XF86XK_(\w+)\s+(?:0x([0-9a-fA-F]+)|_EVDEVK\(0x([0-9a-fA-F]+)\))`)
)

type entry struct {
	name string
	sym  uint64
}

func main() {
	keysymdef := flag.String("keysymdef", "/usr/include/X11/keysymdef.h", "path to keysymdef.h")
	xf86 := flag.String("xf86", "/usr/include/X11/XF86keysym.h", "path to XF86keysym.h")
	out := flag.String("o", "names_gen.go", "output file")
	flag.Parse()

	var entries []entry
	seen := make(map[string]bool)
	add := func(name string, sym uint64) {
		if !seen[name] {
			seen[name] = true
			entries = append(entries, entry{name, sym})
		}
	}

	err := scan(*keysymdef, func(line string) error {
		m := keysymdefRe.FindStringSubmatch(line)
		if m == nil {
			return nil
		}
		sym, err := strconv.ParseUint(m[2], 16, 32)
		if err != nil {
			return err
		}
		add(m[1], sym)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	err = scan(*xf86, func(line string) error {
		m := xf86Re.FindStringSubmatch(line)
		if m == nil {
			return nil
		}
		var base uint64
		hex := m[2]
		if hex == "" {
			base, hex = evdevBase, m[3]
		}
		sym, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return err
		}
		add("XF86"+m[1], base+sym)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	var buf bytes.Buffer
	buf.WriteString("// Code generated by gen.go from keysymdef.h and XF86keysym.h. DO NOT EDIT.\n\n")
	buf.WriteString("package keysym\n\n")
	buf.WriteString("import \"github.com/jezek/xgb/xproto\"\n\n")
	buf.WriteString("// keysymdef lists every named keysym in header order. The first name\n")
	buf.WriteString("// given for a value is its canonical one.\n")
	buf.WriteString("var keysymdef = [...]struct {\n\tname string\n\tsym  xproto.Keysym\n}{\n")
	for _, e := range entries {
		fmt.Fprintf(&buf, "\t{%q, 0x%x},\n", e.name, e.sym)
	}
	buf.WriteString("}\n")

	if err := os.WriteFile(*out, buf.Bytes(), 0644); err != nil {
		log.Fatal(err)
	}
}

func scan(path string, fn func(string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if err := fn(sc.Text()); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return sc.Err()
}
