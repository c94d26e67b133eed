package sweep

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/peter-kozarec/barsim/pkg/config"
)

// Key is the canonical cache key of a configuration. The configuration is
// normalised through its json form, so 5 and 5.0 hash alike, and encoded as a
// deterministic protobuf Struct which orders map keys.
func Key(cfg *config.Run) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("unable to encode config: %w", err)
	}

	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return "", fmt.Errorf("unable to decode config: %w", err)
	}

	s, err := structpb.NewStruct(values)
	if err != nil {
		return "", fmt.Errorf("unable to build config struct: %w", err)
	}

	canonical, err := proto.MarshalOptions{Deterministic: true}.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("unable to marshal config struct: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
