package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey(ProofFolder(42), "Porte d'entrée.JPG")
	assert.True(t, strings.HasPrefix(key, "proofs/42/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotContains(t, key, "entrée")

	assert.NotEqual(t, ObjectKey("proofs/1", "a.png"), ObjectKey("proofs/1", "a.png"))
}

func TestValidateContentType(t *testing.T) {
	assert.NoError(t, ValidateContentType("image/PNG", ImageContentTypes))
	assert.Error(t, ValidateContentType("application/pdf", ImageContentTypes))
}

func TestS3Storage_Presign(t *testing.T) {
	s := NewS3Storage("eu-west-3", "recette-test", "AKIDEXAMPLE", "secret", "https://cdn.example.com/", time.Minute)

	resp, err := s.GeneratePresignedURLWithFolder(context.Background(), "door.jpg", "image/jpeg", ProofFolder(7))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Key, "proofs/7/"))
	assert.Equal(t, "https://cdn.example.com/"+resp.Key, resp.FileURL)
	assert.Contains(t, resp.UploadURL, "recette-test")
	assert.Contains(t, resp.UploadURL, "X-Amz-Signature")
	assert.WithinDuration(t, time.Now().Add(time.Minute), resp.ExpiresAt, 5*time.Second)
}
