// FILE: launchconf/document.go
package launchconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a document serialization.
type Format string

const (
	FormatAuto  Format = ""
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
	FormatJSON  Format = "json"
	FormatJSONC Format = "jsonc"
)

// LoadDocument reads and parses a base document. The format comes from the
// file extension, or from content sniffing when the extension is unknown.
// A missing file is ErrDocumentNotFound. Key order in the document is
// preserved in the returned tree.
func LoadDocument(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	format := formatForPath(path)
	node, err := ParseDocument(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return node, nil
}

// ParseDocument parses raw document bytes in the given format, sniffing
// the format when FormatAuto. An empty or whitespace-only document parses
// as an empty mapping.
func ParseDocument(data []byte, format Format) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Mapping(), nil
	}
	if format == FormatAuto {
		detected, err := sniffFormat(data)
		if err != nil {
			return nil, err
		}
		format = detected
	}
	switch format {
	case FormatYAML:
		return parseYAML(data)
	case FormatTOML:
		return parseTOML(data)
	case FormatJSON:
		return parseJSON(data)
	case FormatJSONC:
		return parseJSON(jsonc.ToJSON(data))
	default:
		return nil, fmt.Errorf("unsupported document format %q", string(format))
	}
}

// EncodeDocument serializes a tree. YAML, JSON, and JSONC output keep
// mapping keys in tree order; TOML output is sorted by its encoder. TOML
// additionally requires a mapping root and cannot carry nulls.
func EncodeDocument(n *Node, format Format) ([]byte, error) {
	switch format {
	case FormatYAML, FormatAuto:
		return yaml.Marshal(yamlFromNode(n))
	case FormatJSON, FormatJSONC:
		var buf bytes.Buffer
		if err := encodeJSONNode(&buf, n, 0); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case FormatTOML:
		if n.Kind() != KindMapping {
			return nil, fmt.Errorf("toml document root must be a mapping, got %s", n.Kind())
		}
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(n.Interface()); err != nil {
			return nil, fmt.Errorf("encode toml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported document format %q", string(format))
	}
}

// SaveDocument encodes the tree in the format implied by the path's
// extension (YAML when unrecognized) and writes it atomically: the bytes
// land in a temp file in the target directory which is then renamed over
// the destination, so readers never observe a partial document.
func SaveDocument(path string, n *Node) error {
	format := formatForPath(path)
	if format == FormatAuto {
		format = FormatYAML
	}
	data, err := EncodeDocument(n, format)
	if err != nil {
		return err
	}
	return atomicWriteFile(path, data)
}

func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// formatForPath maps a file extension to its format, FormatAuto when the
// extension is unknown.
func formatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".jsonc":
		return FormatJSONC
	default:
		return FormatAuto
	}
}

// sniffFormat guesses a format from content. JSON is the strictest grammar
// so it goes first, TOML next, YAML last since YAML accepts nearly any
// text.
func sniffFormat(data []byte) (Format, error) {
	if json.Valid(data) {
		return FormatJSON, nil
	}
	var tomlProbe map[string]any
	if err := toml.Unmarshal(data, &tomlProbe); err == nil {
		return FormatTOML, nil
	}
	var yamlProbe any
	if err := yaml.Unmarshal(data, &yamlProbe); err == nil {
		return FormatYAML, nil
	}
	return FormatAuto, fmt.Errorf("unable to detect document format")
}

// parseYAML decodes through yaml.Node rather than a plain map so that
// mapping order survives.
func parseYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind == 0 {
		return Mapping(), nil
	}
	return nodeFromYAML(&doc)
}

func nodeFromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return Mapping(), nil
		}
		return nodeFromYAML(y.Content[0])
	case yaml.MappingNode:
		out := Mapping()
		for i := 0; i+1 < len(y.Content); i += 2 {
			keyNode := y.Content[i]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", keyNode.Line)
			}
			child, err := nodeFromYAML(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			out.Set(keyNode.Value, child)
		}
		return out, nil
	case yaml.SequenceNode:
		out := Sequence()
		for _, item := range y.Content {
			child, err := nodeFromYAML(item)
			if err != nil {
				return nil, err
			}
			out.Append(child)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := y.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", y.Line, err)
		}
		node, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", y.Line, err)
		}
		return node, nil
	case yaml.AliasNode:
		return nodeFromYAML(y.Alias)
	default:
		return nil, fmt.Errorf("unsupported yaml node kind %d", y.Kind)
	}
}

func yamlFromNode(n *Node) *yaml.Node {
	switch n.Kind() {
	case KindSequence:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.Items() {
			out.Content = append(out.Content, yamlFromNode(item))
		}
		return out
	case KindMapping:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: pair.Key}
			out.Content = append(out.Content, key, yamlFromNode(pair.Value))
		}
		return out
	default:
		return yamlScalar(n.Value())
	}
}

func yamlScalar(v any) *yaml.Node {
	out := &yaml.Node{Kind: yaml.ScalarNode}
	switch t := v.(type) {
	case nil:
		out.Tag = "!!null"
		out.Value = "null"
	case bool:
		out.Tag = "!!bool"
		out.Value = strconv.FormatBool(t)
	case int64:
		out.Tag = "!!int"
		out.Value = strconv.FormatInt(t, 10)
	case float64:
		out.Tag = "!!float"
		out.Value = formatYAMLFloat(t)
	case string:
		out.Tag = "!!str"
		out.Value = t
	}
	return out
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// parseTOML decodes into a plain map first, then restores the document's
// key order from the decoder's metadata.
func parseTOML(data []byte) (*Node, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	node, err := FromAny(raw)
	if err != nil {
		return nil, err
	}
	applyTOMLOrder(node, "", tomlChildOrder(md.Keys()))
	return node, nil
}

// tomlChildOrder maps each parent key path to its child keys in document
// order. Paths join with NUL since quoted TOML keys may contain dots.
func tomlChildOrder(keys []toml.Key) map[string][]string {
	order := make(map[string][]string)
	seen := make(map[string]bool)
	for _, key := range keys {
		if len(key) == 0 {
			continue
		}
		parent := strings.Join(key[:len(key)-1], "\x00")
		full := strings.Join(key, "\x00")
		if !seen[full] {
			seen[full] = true
			order[parent] = append(order[parent], key[len(key)-1])
		}
	}
	return order
}

func applyTOMLOrder(n *Node, prefix string, order map[string][]string) {
	switch n.Kind() {
	case KindSequence:
		for _, item := range n.Items() {
			applyTOMLOrder(item, prefix, order)
		}
	case KindMapping:
		if want := order[prefix]; len(want) > 0 {
			rebuilt := orderedmap.New[string, *Node]()
			for _, key := range want {
				if v, ok := n.fields.Get(key); ok {
					rebuilt.Set(key, v)
				}
			}
			for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
				if _, ok := rebuilt.Get(pair.Key); !ok {
					rebuilt.Set(pair.Key, pair.Value)
				}
			}
			n.fields = rebuilt
		}
		for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
			childPrefix := pair.Key
			if prefix != "" {
				childPrefix = prefix + "\x00" + pair.Key
			}
			applyTOMLOrder(pair.Value, childPrefix, order)
		}
	}
}

// parseJSON walks the token stream instead of unmarshaling into a map, for
// the same reason parseYAML walks yaml.Node: object key order must
// survive. Numbers stay json.Number until scalar normalization.
func parseJSON(data []byte) (*Node, error) {
	node, err := decodeJSONDocument(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return node, nil
}

// parseJSONLiteral parses a structured override value. The whole input
// must be one JSON value; trailing content is an error rather than a
// silent truncation.
func parseJSONLiteral(raw string) (*Node, error) {
	return decodeJSONDocument(strings.NewReader(raw))
}

func decodeJSONDocument(r io.Reader) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	node, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after value")
	}
	return node, nil
}

func decodeJSONValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			out := Mapping()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key must be a string, got %v", keyTok)
				}
				child, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out.Set(key, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		case '[':
			out := Sequence()
			for dec.More() {
				child, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out.Append(child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t.String())
		}
	case string, bool, json.Number:
		return Scalar(t), nil
	case nil:
		return Null(), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func encodeJSONNode(buf *bytes.Buffer, n *Node, depth int) error {
	switch n.Kind() {
	case KindScalar:
		if f, ok := n.Value().(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			return fmt.Errorf("cannot encode non-finite float as json")
		}
		data, err := json.Marshal(n.Value())
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindSequence:
		if n.Len() == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, item := range n.Items() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONIndent(buf, depth+1)
			if err := encodeJSONNode(buf, item, depth+1); err != nil {
				return err
			}
		}
		writeJSONIndent(buf, depth)
		buf.WriteByte(']')
	case KindMapping:
		if n.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		first := true
		for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			writeJSONIndent(buf, depth+1)
			key, err := json.Marshal(pair.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteString(": ")
			if err := encodeJSONNode(buf, pair.Value, depth+1); err != nil {
				return err
			}
		}
		writeJSONIndent(buf, depth)
		buf.WriteByte('}')
	}
	return nil
}

func writeJSONIndent(buf *bytes.Buffer, depth int) {
	buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
