package grpcapi

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rpcPattern = regexp.MustCompile(`(?m)^\s*rpc\s+(\w+)\(google\.protobuf\.Struct\)\s+returns\s+\(google\.protobuf\.Struct\);`)

func TestSettlementServiceDesc_MatchesProto(t *testing.T) {
	path := filepath.Join("..", "..", "..", SettlementServiceDesc.Metadata.(string))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "package settlement.v1;")
	assert.Contains(t, string(raw), "service SettlementService {")

	var declared []string
	for _, match := range rpcPattern.FindAllStringSubmatch(string(raw), -1) {
		declared = append(declared, match[1])
	}

	var registered []string
	for _, method := range SettlementServiceDesc.Methods {
		registered = append(registered, method.MethodName)
	}
	assert.Equal(t, registered, declared)
}
