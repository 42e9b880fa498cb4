package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateSiteRequest_ToDomainMonitors_NilMeansUntouched(t *testing.T) {
	req := updateSiteRequest{}
	assert.Nil(t, req.toDomainMonitors())
}

func TestUpdateSiteRequest_ToDomainMonitors_EmptySliceMeansClear(t *testing.T) {
	req := updateSiteRequest{Monitors: []monitorRequest{}}
	result := req.toDomainMonitors()
	assert.NotNil(t, result)
	assert.Empty(t, result)
}
