package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLaterIsMonotone(t *testing.T) {
	assert.Equal(t, StatusDelivered, Later(StatusSent, StatusDelivered))
	assert.Equal(t, StatusDelivered, Later(StatusDelivered, StatusSent))
	assert.Equal(t, StatusSeen, Later(StatusSeen, StatusSent))
	assert.Equal(t, StatusSeen, Later(StatusSeen, StatusDelivered))
	assert.Equal(t, StatusSeen, Later(StatusDelivered, StatusSeen))
}

func TestPolicyForConversationType(t *testing.T) {
	assert.Equal(t, ReadByAll, PolicyFor(false))
	assert.Equal(t, ReadByAny, PolicyFor(true))
}

func TestReadByAllSatisfied(t *testing.T) {
	recipients := []string{"bob", "carol"}

	assert.False(t, ReadByAll.Satisfied(nil, recipients))
	assert.False(t, ReadByAll.Satisfied([]string{"bob"}, recipients))
	assert.True(t, ReadByAll.Satisfied([]string{"bob", "carol"}, recipients))

	// Readers outside the recipient set do not count.
	assert.False(t, ReadByAll.Satisfied([]string{"bob", "mallory"}, recipients))
	assert.True(t, ReadByAll.Satisfied([]string{"mallory", "carol", "bob"}, recipients))
}

func TestReadByAnySatisfied(t *testing.T) {
	recipients := []string{"bob", "carol", "dave"}

	assert.False(t, ReadByAny.Satisfied(nil, recipients))
	assert.True(t, ReadByAny.Satisfied([]string{"carol"}, recipients))
	assert.False(t, ReadByAny.Satisfied([]string{"mallory"}, recipients))
}

func TestSatisfiedWithNoRecipients(t *testing.T) {
	assert.False(t, ReadByAll.Satisfied([]string{"bob"}, nil))
	assert.False(t, ReadByAny.Satisfied([]string{"bob"}, nil))
}

func TestProjectUpgradesToSeen(t *testing.T) {
	recipients := []string{"bob"}

	got := Project(StatusSent, []string{"bob"}, recipients, ReadByAll)
	assert.Equal(t, StatusSeen, got)

	got = Project(StatusDelivered, []string{"bob"}, recipients, ReadByAll)
	assert.Equal(t, StatusSeen, got)
}

func TestProjectNeverRegresses(t *testing.T) {
	recipients := []string{"bob", "carol"}

	// Partial read set leaves the current status alone.
	got := Project(StatusDelivered, []string{"bob"}, recipients, ReadByAll)
	assert.Equal(t, StatusDelivered, got)

	// A seen message stays seen even when re-evaluated against an
	// unsatisfied read set.
	got = Project(StatusSeen, nil, recipients, ReadByAll)
	assert.Equal(t, StatusSeen, got)
}
