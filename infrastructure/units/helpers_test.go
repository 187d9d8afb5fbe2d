package units

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// stateFor returns a state carrying snap.
func stateFor(snap *domain.Snapshot) domain.State {
	return domain.With(domain.NewState(), domain.KeySnapshot, snap)
}

// yamlNode parses src into a node the way the report loader hands
// parameters to units.
func yamlNode(t *testing.T, src string) yaml.Node {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))
	return node
}
