// Command gridcalc is a small interactive driver for the spreadsheet engine.
// It reads commands from stdin, one per line:
//
//	set A1 =2+2*2
//	get A1
//	text A1
//	clear A1
//	insrows 1 [count]    inscols 1 [count]
//	delrows 1 [count]    delcols 1 [count]
//	size  values  texts  quit
//
// Cell positions use A1-style labels; row/column indices are zero-based.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/kalexmills/gridcalc/internal/formula"
	"github.com/kalexmills/gridcalc/internal/position"
	"github.com/kalexmills/gridcalc/internal/sheet"
)

func main() {
	app := &cli.App{
		Name:  "gridcalc",
		Usage: "interactive spreadsheet compute core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "logrus level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Action: func(c *cli.Context) error {
			logger := logrus.New()
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			logger.SetLevel(parseLogLevel(c.String("log-level")))

			return repl(os.Stdin, os.Stdout, logger)
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseLogLevel maps a level name to its logrus level, defaulting to warn.
func parseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

func repl(in io.Reader, out io.Writer, logger logrus.FieldLogger) error {
	s := sheet.New(sheet.WithLogger(logger))
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := runCommand(s, out, line); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func runCommand(s *sheet.Sheet, out io.Writer, line string) error {
	fields := strings.SplitN(line, " ", 3)
	cmd := fields[0]

	switch cmd {
	case "set":
		if len(fields) < 2 {
			return fmt.Errorf("usage: set <cell> <text>")
		}
		text := ""
		if len(fields) == 3 {
			text = fields[2]
		}
		return s.SetCell(parseCell(fields[1]), text)

	case "get", "text":
		if len(fields) != 2 {
			return fmt.Errorf("usage: %s <cell>", cmd)
		}
		c, err := s.GetCell(parseCell(fields[1]))
		if err != nil {
			return err
		}
		if c == nil {
			fmt.Fprintln(out, "<empty>")
			return nil
		}
		if cmd == "get" {
			fmt.Fprintln(out, formula.FormatValue(c.GetValue()))
		} else {
			fmt.Fprintln(out, c.GetText())
		}
		return nil

	case "clear":
		if len(fields) != 2 {
			return fmt.Errorf("usage: clear <cell>")
		}
		return s.ClearCell(parseCell(fields[1]))

	case "insrows", "inscols", "delrows", "delcols":
		if len(fields) < 2 {
			return fmt.Errorf("usage: %s <index> [count]", cmd)
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad index %q", fields[1])
		}
		count := 1
		if len(fields) == 3 {
			count, err = strconv.Atoi(fields[2])
			if err != nil || count < 1 {
				return fmt.Errorf("bad count %q", fields[2])
			}
		}
		switch cmd {
		case "insrows":
			return s.InsertRows(idx, count)
		case "inscols":
			return s.InsertCols(idx, count)
		case "delrows":
			s.DeleteRows(idx, count)
		case "delcols":
			s.DeleteCols(idx, count)
		}
		return nil

	case "size":
		rows, cols := s.GetPrintableSize()
		fmt.Fprintf(out, "(%d, %d)\n", rows, cols)
		return nil

	case "values":
		return s.PrintValues(out)

	case "texts":
		return s.PrintTexts(out)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// parseCell is deliberately forgiving: a bad label becomes an invalid
// position, which the sheet rejects with its own error.
func parseCell(label string) position.Pos {
	return position.FromString(strings.ToUpper(label))
}
