package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroup_Membership(t *testing.T) {
	group := &Group{Members: []Member{
		{ID: "alice", Position: 0},
		{ID: "bob", Position: 1, LeftAt: 1700000000},
		{ID: "carol", Position: 2},
	}}

	active := group.ActiveMembers()
	if assert.Len(t, active, 2) {
		assert.Equal(t, "alice", active[0].ID)
		assert.Equal(t, "carol", active[1].ID)
	}

	assert.True(t, group.IsActiveMember("alice"))
	assert.False(t, group.IsActiveMember("bob"), "left members stay in the roster but are inactive")
	assert.False(t, group.IsActiveMember("mallory"))

	bob, ok := group.FindMember("bob")
	assert.True(t, ok)
	assert.Equal(t, 1, bob.Position)
}
