package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil qa service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{OwnerID: "u1"})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingQAService)
	})

	t.Run("missing owner returns error", func(t *testing.T) {
		_, err := NewServer(&Ports{QA: &mockQAService{}})
		assert.ErrorIs(t, err, ErrMissingOwner)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{OwnerID: "u1", QA: &mockQAService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("qa only is valid", func(t *testing.T) {
		ports := &Ports{OwnerID: "u1", QA: &mockQAService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			OwnerID: "u1",
			QA:      &mockQAService{},
			Ingest:  &mockIngestService{},
			Tasks:   &mockTaskService{},
			Ideas:   &mockIdeaService{},
			Mail:    &mockMailService{},
		}
		assert.NoError(t, ports.Validate())
	})
}
