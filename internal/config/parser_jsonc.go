package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tailscale/hujson"
)

// decodeJSONC standardizes JSON-with-comments into plain JSON and decodes it
// strictly. Standardize blanks comments and trailing commas in place, so
// decoder offsets still point into the original file.
func decodeJSONC(content string) (fileConfig, error) {
	standard, err := standardizeJSONC(content)
	if err != nil {
		return fileConfig{}, err
	}

	decoder := json.NewDecoder(bytes.NewReader(standard))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return fileConfig{}, locateJSONError(standard, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return fileConfig{}, errors.New("jsonc: multiple JSON values are not allowed")
		}
		return fileConfig{}, locateJSONError(standard, err)
	}
	return payload, nil
}

func standardizeJSONC(content string) ([]byte, error) {
	standard, err := hujson.Standardize([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("jsonc: %w", err)
	}
	return standard, nil
}

// locateJSONError prefixes decoder errors that carry a byte offset with the
// matching line and column.
func locateJSONError(content []byte, err error) error {
	var offset int64 = -1

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 {
		return err
	}

	line, col := lineColumn(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// lineColumn converts a decoder offset (bytes consumed) to a 1-based position.
func lineColumn(content []byte, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	end := min(int(offset), len(content))
	if end > 0 {
		end--
	}

	before := content[:end]
	line := bytes.Count(before, []byte{'\n'}) + 1
	col := end - bytes.LastIndexByte(before, '\n')
	return line, col
}
