package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"rovlink/pkg/protocol"
)

const defaultHeaderName = "rovlink_protocol.h"

func main() {
	code := run(os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "header":
		return runHeader(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintln(stderr, "unknown command:", args[0])
		printUsage(stderr)
		return 2
	}
}

func runHeader(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("header", flag.ContinueOnError)
	fs.SetOutput(stderr)

	out := fs.String("out", "", "output path, stdout when empty")
	prefix := fs.String("prefix", "rovlink", "identifier prefix")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	name := defaultHeaderName
	if *out != "" && *out != "-" {
		name = filepath.Base(*out)
	}
	data, err := renderHeader(name, *prefix)
	if err != nil {
		fmt.Fprintln(stderr, "render failed:", err)
		return 1
	}

	if *out == "" || *out == "-" {
		_, _ = stdout.Write(data)
		return 0
	}
	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(stderr, "create output directory:", err)
			return 1
		}
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintln(stderr, "write header:", err)
		return 1
	}
	fmt.Fprintf(stdout, "[Gen] Wrote %s with %d module(s)\n", *out, len(protocol.Layouts()))
	return 0
}

type headerData struct {
	Guard   string
	Prefix  string
	Upper   string
	Frame   frameConsts
	Modules []headerModule
}

type frameConsts struct {
	Size           int
	PayloadSize    int
	PayloadOffset  int
	ChecksumOffset int
	Start          uint8
	End            uint8
}

type headerModule struct {
	Name     string
	Upper    string
	ID       uint8
	Variants []headerVariant
	Fields   []protocol.FieldDef
	Pad      int
}

type headerVariant struct {
	Upper string
	Value uint8
}

var headerTemplate = template.Must(template.New("header").Parse(`/* Code generated by rovlink-gen. DO NOT EDIT. */
#ifndef {{.Guard}}
#define {{.Guard}}

#include <stdint.h>

#define {{.Upper}}_FRAME_SIZE {{.Frame.Size}}
#define {{.Upper}}_PAYLOAD_SIZE {{.Frame.PayloadSize}}
#define {{.Upper}}_PAYLOAD_OFFSET {{.Frame.PayloadOffset}}
#define {{.Upper}}_CHECKSUM_OFFSET {{.Frame.ChecksumOffset}}
#define {{.Upper}}_START_BYTE {{printf "0x%02X" .Frame.Start}}
#define {{.Upper}}_END_BYTE {{printf "0x%02X" .Frame.End}}
{{range .Modules}}
#define {{$.Upper}}_MODULE_{{.Upper}} {{printf "0x%02X" .ID}}
{{- end}}
{{range .Modules}}{{if .Variants}}
typedef enum {
{{- range .Variants}}
  {{.Upper}} = {{.Value}},
{{- end}}
} {{$.Prefix}}_{{.Name}}_state_t;
{{end}}{{end}}{{range .Modules}}
typedef struct __attribute__((packed)) {
{{- range .Fields}}
  {{.CType}} {{.Name}};
{{- end}}
{{- if .Pad}}
  uint8_t reserved[{{.Pad}}];
{{- end}}
} {{$.Prefix}}_{{.Name}}_payload_t;
{{end}}
#endif /* {{.Guard}} */
`))

func renderHeader(fileName string, prefix string) ([]byte, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, fmt.Errorf("empty identifier prefix")
	}
	upper := strings.ToUpper(prefix)

	data := headerData{
		Guard:  guardName(fileName),
		Prefix: prefix,
		Upper:  upper,
		Frame: frameConsts{
			Size:           protocol.FrameSize,
			PayloadSize:    protocol.PayloadSize,
			PayloadOffset:  protocol.PayloadOffset,
			ChecksumOffset: protocol.ChecksumOffset,
			Start:          protocol.StartByte,
			End:            protocol.EndByte,
		},
	}

	for _, layout := range protocol.Layouts() {
		name := layout.Module.String()
		mod := headerModule{
			Name:   name,
			Upper:  strings.ToUpper(name),
			ID:     layout.ID,
			Fields: layout.Fields,
			Pad:    layout.ByteSize - usedBytes(layout.Fields),
		}
		for _, v := range stateVariants(layout.Module) {
			label := strings.TrimPrefix(v.String(), name+" ")
			mod.Variants = append(mod.Variants, headerVariant{
				Upper: upper + "_" + mod.Upper + "_" + strings.ToUpper(label),
				Value: stateValue(v),
			})
		}
		data.Modules = append(data.Modules, mod)
	}

	var buf bytes.Buffer
	if err := headerTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stateVariants(m protocol.Module) []protocol.Command {
	switch m {
	case protocol.ModuleBallast:
		return []protocol.Command{protocol.BallastIdle, protocol.BallastIntake, protocol.BallastDischarge}
	case protocol.ModuleLight:
		return []protocol.Command{protocol.LightOff, protocol.LightOn, protocol.LightBlink}
	default:
		return nil
	}
}

// stateValue reads the state byte back out of the encoded frame so the
// header always matches the codec.
func stateValue(cmd protocol.Command) uint8 {
	return cmd.Encode().Payload()[0]
}

func usedBytes(fields []protocol.FieldDef) int {
	used := 0
	for _, f := range fields {
		if end := f.Offset + f.Size; end > used {
			used = end
		}
	}
	return used
}

func guardName(fileName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(fileName) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  go run tools/rovlink-gen.go header [--out rovlink_protocol.h] [--prefix rovlink]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  header   write the firmware C header for the command frame")
}
