// FILE: launchconf/decode.go
package launchconf

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DecodePath decodes the mapping at basePath into a target struct. The
// empty path decodes the whole tree. Field names resolve through "yaml"
// tags so the same struct serves document parsing and tree decoding.
// Decoding is weakly typed: "8" fills an int field, 1 fills a bool, and a
// comma-separated string fills a slice. An absent path decodes as an
// empty mapping and leaves the target zeroed.
func DecodePath(tree *Node, basePath string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}

	var section any
	if node, ok := tree.Lookup(basePath); ok {
		section = node.Interface()
	}
	sectionMap, ok := section.(map[string]any)
	if !ok {
		if section == nil {
			sectionMap = make(map[string]any)
		} else {
			return fmt.Errorf("path %q refers to a non-mapping value (type %T)", basePath, section)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       decodeHook(),
		ZeroFields:       true,
		Metadata:         nil,
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(sectionMap); err != nil {
		return fmt.Errorf("decode failed for path %q: %w", basePath, err)
	}

	return nil
}

// decodeHook returns the composite decode hook for type conversions that
// weak typing alone cannot express.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}
