package web

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/JonMunkholm/txrecover/internal/core"
)

// writeRejections writes one CSV record per rejection: _line, _reason, then
// the tokens of the discarded group.
func writeRejections(w io.Writer, rejections []core.Rejection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"_line", "_reason", "tokens"}); err != nil {
		return err
	}
	for _, rej := range rejections {
		record := append([]string{strconv.Itoa(rej.Line), rej.Reason}, rej.Tokens...)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
