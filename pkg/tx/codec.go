package tx

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Format identifies a batch encoding.
type Format string

// Supported batch formats.
const (
	FormatLines Format = "lines" // from,to,amount per line
	FormatJSON  Format = "json"  // JSON array of transactions
	FormatCBOR  Format = "cbor"  // CBOR array of transactions
)

// ErrUnknownFormat is returned for unsupported batch formats.
var ErrUnknownFormat = errors.New("unknown batch format")

// cborEnc produces core deterministic CBOR.
var cborEnc, _ = cbor.CoreDetEncOptions().EncMode()

// FormatFromPath picks a format from the file extension.
// Unknown extensions fall back to lines.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".cbor":
		return FormatCBOR
	default:
		return FormatLines
	}
}

// DecodeBatch decodes a batch of transactions in the given format.
func DecodeBatch(format Format, data []byte) ([]*Transaction, error) {
	switch format {
	case FormatLines, "":
		return ParseLines(string(data))
	case FormatJSON:
		// Strip a UTF-8 BOM if an editor added one.
		if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
			data = data[3:]
		}
		var txs []*Transaction
		if err := json.Unmarshal(data, &txs); err != nil {
			return nil, fmt.Errorf("decode json batch: %w", err)
		}
		return txs, nil
	case FormatCBOR:
		var txs []*Transaction
		if err := cbor.Unmarshal(data, &txs); err != nil {
			return nil, fmt.Errorf("decode cbor batch: %w", err)
		}
		return txs, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// EncodeBatch encodes transactions in the given format.
func EncodeBatch(format Format, txs []*Transaction) ([]byte, error) {
	switch format {
	case FormatLines, "":
		var sb strings.Builder
		for _, t := range txs {
			sb.WriteString(t.String())
			sb.WriteByte('\n')
		}
		return []byte(sb.String()), nil
	case FormatJSON:
		return json.Marshal(txs)
	case FormatCBOR:
		return cborEnc.Marshal(txs)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
