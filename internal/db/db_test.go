package db

import (
	"testing"

	"qic_life/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "whatever", true)
	assert.Error(t, err)
}

func TestMigrateAndSeedIsIdempotent(t *testing.T) {
	gdb, err := OpenMemory()
	require.NoError(t, err)

	require.NoError(t, Seed(gdb))
	require.NoError(t, Seed(gdb))

	var missions, rewards int64
	require.NoError(t, gdb.Model(&domain.Mission{}).Count(&missions).Error)
	require.NoError(t, gdb.Model(&domain.Reward{}).Count(&rewards).Error)
	assert.Equal(t, int64(len(DefaultMissions())), missions)
	assert.Equal(t, int64(len(DefaultRewards())), rewards)

	var walk domain.Mission
	require.NoError(t, gdb.First(&walk, "id = ?", "daily-walk").Error)
	assert.True(t, walk.Repeatable)
	assert.True(t, walk.Active)
}
