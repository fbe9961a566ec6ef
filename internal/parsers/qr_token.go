// Package parsers reads the operator-supplied files that feed register generation.
package parsers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// The token sits in cell B2 of the file exported by the QR provider.
const (
	TokenRow = 1
	TokenCol = 1

	// MaxTokenFileBytes bounds how much of a token file is read.
	MaxTokenFileBytes = 1 << 20
)

var (
	ErrTokenCellMissing = errors.New("token cell B2 not present")
	ErrEmptyToken       = errors.New("token cell B2 is empty")
	ErrEmptyLotNumber   = errors.New("file name does not carry a lot number")
)

// DecodeReader strips a UTF-8 BOM and transcodes UTF-16 input (LE or BE, detected
// by its BOM) to UTF-8. Input without a BOM is passed through as UTF-8.
func DecodeReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// ParseQRToken returns the trimmed value of cell B2. Both comma and semicolon
// separated files are accepted.
func ParseQRToken(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(DecodeReader(r), MaxTokenFileBytes))
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for row := 0; ; row++ {
		rec, err := reader.Read()
		if err == io.EOF {
			return "", ErrTokenCellMissing
		}
		if err != nil {
			return "", fmt.Errorf("token file line %d: %w", row+1, err)
		}
		if row < TokenRow {
			continue
		}
		if len(rec) <= TokenCol {
			return "", ErrTokenCellMissing
		}
		token := strings.TrimSpace(rec[TokenCol])
		if token == "" {
			return "", ErrEmptyToken
		}
		return token, nil
	}
}

// LotNumberFromFileName maps "LOT-123.csv" (any directory, any extension) to "LOT-123".
func LotNumberFromFileName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	lot := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if lot == "" || lot == "." || lot == "/" {
		return "", ErrEmptyLotNumber
	}
	return lot, nil
}

func detectDelimiter(data []byte) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		return ';'
	}
	return ','
}
