package audit

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

func TestService_ExportSigned_RoundTrip(t *testing.T) {
	ctx := context.Background()
	keyURL := "mem://localhost/secrets/audit-hmac.key"
	encoded := base64.StdEncoding.EncodeToString([]byte("orchestra-audit-export-signing-key-01"))
	err := afs.New().Upload(ctx, keyURL, file.DefaultFileOsMode, strings.NewReader(encoded))
	assert.Nil(t, err)

	srv := New(zerolog.Nop())
	srv.Log(&Event{
		Category:  CategoryFlowExecution,
		Level:     LevelInfo,
		FlowID:    "f1",
		Operation: "execute_phase",
		Success:   true,
	})

	config := &SignerConfig{HMACKeyURL: keyURL}
	export, err := srv.ExportSigned(ctx, "f1", FormatJSON, config)
	assert.Nil(t, err)
	assert.NotEqual(t, "", export.Signature)
	assert.Nil(t, VerifySignedExport(ctx, export, config))

	// Tampered data no longer matches the signed digest.
	tampered := *export
	tampered.Data = append(append([]byte{}, export.Data...), '!')
	assert.NotNil(t, VerifySignedExport(ctx, &tampered, config))

	// A consistent data+digest swap cannot reuse the old signature.
	forged := *export
	forged.Data = tampered.Data
	sum := sha256.Sum256(forged.Data)
	forged.Digest = hex.EncodeToString(sum[:])
	assert.NotNil(t, VerifySignedExport(ctx, &forged, config))

	// Key material is mandatory on both sides.
	_, err = srv.ExportSigned(ctx, "f1", FormatJSON, &SignerConfig{})
	assert.NotNil(t, err)
	assert.NotNil(t, VerifySignedExport(ctx, export, &SignerConfig{}))
}
