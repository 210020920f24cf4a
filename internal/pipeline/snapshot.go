package pipeline

import (
	"bytes"

	"github.com/roach88/datalib/internal/render"
)

// Snapshot renders a result as canonical JSON:
//
//	{"pipeline": ..., "result": <render.JSON>, "tx_id": ...}
//
// With a deterministic ID generator the bytes are stable across runs, which
// is what golden files compare.
func Snapshot(res *Result) ([]byte, error) {
	body, err := render.JSON(res.Collection)
	if err != nil {
		return nil, err
	}
	name, err := render.MarshalCanonical(res.Pipeline)
	if err != nil {
		return nil, err
	}
	tx, err := render.MarshalCanonical(res.TxID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"pipeline":`)
	buf.Write(name)
	buf.WriteString(`,"result":`)
	buf.Write(body)
	buf.WriteString(`,"tx_id":`)
	buf.Write(tx)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
