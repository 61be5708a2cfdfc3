package service

import (
	"testing"

	"photogen-service/internal/biz"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRefDTOToBiz(t *testing.T) {
	ref, err := (&AccountRefDTO{Kind: "event", ID: "ev-1"}).toBiz()
	require.NoError(t, err)
	assert.Equal(t, biz.AccountRef{Kind: biz.AccountKindEvent, ID: "ev-1"}, ref)

	_, err = (&AccountRefDTO{Kind: "wallet", ID: "x"}).toBiz()
	require.Error(t, err)

	_, err = (&AccountRefDTO{Kind: "partner", ID: ""}).toBiz()
	require.Error(t, err)
}
