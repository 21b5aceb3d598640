package core

import (
	"context"
	"errors"
	"testing"

	"github.com/huangsam/backupwatch/internal/store"
	"github.com/huangsam/backupwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoadMetadata(t *testing.T) {
	in := fixtureInput()
	src := &store.MockMetadataSource{}
	src.On("ListBackupRecords", mock.Anything).Return(in.Records, nil)
	src.On("ListSchedules", mock.Anything).Return(in.Schedules, nil)
	src.On("ListTaskEvents", mock.Anything).Return(in.Events, nil)

	snap, err := LoadMetadata(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, snap.Records, len(in.Records))
	assert.Len(t, snap.Schedules, 2)
	assert.Len(t, snap.Events, 3)
	src.AssertExpectations(t)
}

func TestLoadMetadata_Failure(t *testing.T) {
	src := &store.MockMetadataSource{}
	src.On("ListBackupRecords", mock.Anything).Return(nil, errors.New("broken pipe"))
	src.On("ListSchedules", mock.Anything).Return([]schema.Schedule{}, nil).Maybe()
	src.On("ListTaskEvents", mock.Anything).Return([]schema.TaskEvent{}, nil).Maybe()

	snap, err := LoadMetadata(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Nil(t, snap.Records)
	assert.Nil(t, snap.Schedules)
}
