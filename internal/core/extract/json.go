package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// JSON flattens a document into an indented key tree. Object keys keep
// their input order and array elements are labelled [i].
type JSON struct{}

// maxJSONDepth bounds both decoder recursion and the indentation the
// flattened tree carries, which grows with the square of the depth.
const maxJSONDepth = 1000

var errJSONTooDeep = errors.New("json nested too deeply")

type jsonNode struct {
	leaf   bool
	scalar string
	keys   []string
	kids   []jsonNode
}

func (JSON) ExtractText(_ context.Context, data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := decodeJSONNode(dec, 0)
	if err != nil {
		return "", fmt.Errorf("decode json: %w", err)
	}

	var b strings.Builder
	if root.leaf {
		b.WriteString(root.scalar)
	} else {
		writeJSONNode(&b, root, 0)
	}
	return b.String(), nil
}

func decodeJSONNode(dec *json.Decoder, depth int) (jsonNode, error) {
	if depth > maxJSONDepth {
		return jsonNode{}, errJSONTooDeep
	}
	tok, err := dec.Token()
	if err != nil {
		return jsonNode{}, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return jsonNode{leaf: true, scalar: jsonScalar(tok)}, nil
	}

	var n jsonNode
	for i := 0; dec.More(); i++ {
		key := "[" + strconv.Itoa(i) + "]"
		if delim == '{' {
			kt, err := dec.Token()
			if err != nil {
				return jsonNode{}, err
			}
			key = fmt.Sprint(kt)
		}
		child, err := decodeJSONNode(dec, depth+1)
		if err != nil {
			return jsonNode{}, err
		}
		n.keys = append(n.keys, key)
		n.kids = append(n.kids, child)
	}
	// closing delimiter
	if _, err := dec.Token(); err != nil {
		return jsonNode{}, err
	}
	return n, nil
}

func writeJSONNode(b *strings.Builder, n jsonNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for i, kid := range n.kids {
		if kid.leaf {
			fmt.Fprintf(b, "%s%s: %s\n", indent, n.keys[i], kid.scalar)
			continue
		}
		fmt.Fprintf(b, "%s%s:\n", indent, n.keys[i])
		writeJSONNode(b, kid, depth+1)
	}
}

func jsonScalar(tok any) string {
	switch v := tok.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
