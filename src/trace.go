package chanest

/*------------------------------------------------------------------
 *
 * Purpose:	Save per-tick engine activity to a trace file.
 *
 * Description:	Rather than a raw register dump, write separated fields
 *		in CSV format for easy reading and later processing.
 *
 *		There are two alternatives here.
 *
 *		Fixed path:	one file, caller names it.
 *
 *		Daily names:	a directory; files inside are named
 *				from a strftime pattern, rolled over
 *				when the date changes.
 *
 *		The file is kept open across writes.  We don't
 *		open/close for every tick.
 *
 *----------------------------------------------------------------*/

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Daily trace file name pattern, within the trace directory.
const TRACE_NAME_PATTERN = "chanest-%Y-%m-%d.trace"

type TraceWriter struct {
	dailyNames  bool
	path        string // Directory (daily names) or full file name
	pattern     *strftime.Strftime
	numChannels int

	file     *os.File
	csv      *csv.Writer
	openName string // Name of the currently open file, daily names only
}

// NewTraceWriter prepares a trace writer.  With dailyNames true, path
// is a directory and files inside it are named by date; otherwise path
// is the trace file itself, truncated on open.
func NewTraceWriter(dailyNames bool, path string, numChannels int) (*TraceWriter, error) {
	var tw = &TraceWriter{
		dailyNames:  dailyNames,
		path:        path,
		numChannels: numChannels,
	}

	if dailyNames {
		var stat, statErr = os.Stat(path)
		if statErr != nil {
			return nil, fmt.Errorf("trace directory %q: %w", path, statErr)
		}

		if !stat.IsDir() {
			return nil, fmt.Errorf("trace location %q is not a directory", path)
		}

		var pattern, patternErr = strftime.New(TRACE_NAME_PATTERN)
		if patternErr != nil {
			return nil, patternErr
		}

		tw.pattern = pattern

		return tw, nil
	}

	var file, openErr = os.Create(path)
	if openErr != nil {
		return nil, fmt.Errorf("trace file %q: %w", path, openErr)
	}

	tw.file = file
	tw.csv = csv.NewWriter(file)

	return tw, tw.writeHeader()
}

func (tw *TraceWriter) writeHeader() error {
	var header = []string{"tick", "state", "pilot_index", "valid", "overflow"}

	for i := 0; i < tw.numChannels; i++ {
		header = append(header, fmt.Sprintf("est%d", i))
	}

	for i := 0; i < tw.numChannels; i++ {
		header = append(header, fmt.Sprintf("err%d", i))
	}

	return tw.csv.Write(header)
}

// rollover opens the file for the current date if it isn't already.
func (tw *TraceWriter) rollover(now time.Time) error {
	var name = filepath.Join(tw.path, tw.pattern.FormatString(now))

	if tw.file != nil && name == tw.openName {
		return nil
	}

	if tw.file != nil {
		tw.csv.Flush()
		tw.file.Close()
		tw.file = nil
	}

	var file, openErr = os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if openErr != nil {
		return fmt.Errorf("trace file %q: %w", name, openErr)
	}

	var stat, _ = file.Stat()

	tw.file = file
	tw.csv = csv.NewWriter(file)
	tw.openName = name

	if stat != nil && stat.Size() == 0 {
		return tw.writeHeader()
	}

	return nil
}

// Write records one tick of engine outputs.
func (tw *TraceWriter) Write(tick int, out Outputs) error {
	if tw.dailyNames {
		if err := tw.rollover(time.Now()); err != nil {
			return err
		}
	}

	var row = []string{
		strconv.Itoa(tick),
		out.State.String(),
		strconv.Itoa(out.PilotIndex),
		strconv.FormatBool(out.EstimationValid),
		strconv.FormatBool(out.OverflowFlag),
	}

	for _, v := range out.Estimates {
		row = append(row, strconv.FormatInt(v, 10))
	}

	for _, v := range out.Errors {
		row = append(row, strconv.FormatInt(v, 10))
	}

	return tw.csv.Write(row)
}

func (tw *TraceWriter) Close() error {
	if tw.file == nil {
		return nil
	}

	tw.csv.Flush()

	if err := tw.csv.Error(); err != nil {
		tw.file.Close()

		return err
	}

	return tw.file.Close()
}
