package skillreg

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roost-dev/roost/pkg/board"
)

func TestRegisterSkills(t *testing.T) {
	t.Run("returns the sorted full skill set", func(t *testing.T) {
		r := NewRegistry()

		skills := r.RegisterSkills("a1", []string{"translate", "compile"})
		assert.Equal(t, []string{"compile", "translate"}, skills)

		// Subsequent registrations accumulate.
		skills = r.RegisterSkills("a1", []string{"review"})
		assert.Equal(t, []string{"compile", "review", "translate"}, skills)
	})

	t.Run("is idempotent", func(t *testing.T) {
		r := NewRegistry()

		r.RegisterSkills("a1", []string{"translate"})
		skills := r.RegisterSkills("a1", []string{"translate"})
		assert.Equal(t, []string{"translate"}, skills)
		assert.Equal(t, []string{"a1"}, r.FindProviders("translate"))
	})

	t.Run("ignores empty skill names", func(t *testing.T) {
		r := NewRegistry()

		skills := r.RegisterSkills("a1", []string{"", "translate"})
		assert.Equal(t, []string{"translate"}, skills)
		assert.Empty(t, r.FindProviders(""))
	})
}

func TestFindProviders(t *testing.T) {
	r := NewRegistry()

	r.RegisterSkills("a2", []string{"translate"})
	r.RegisterSkills("a1", []string{"translate"})

	t.Run("sorted provider list", func(t *testing.T) {
		assert.Equal(t, []string{"a1", "a2"}, r.FindProviders("translate"))
	})

	t.Run("unknown skill returns empty", func(t *testing.T) {
		assert.Empty(t, r.FindProviders("levitate"))
	})
}

func TestUnregisterAgent(t *testing.T) {
	r := NewRegistry()

	r.RegisterSkills("a1", []string{"translate", "compile"})
	r.RegisterSkills("a2", []string{"translate"})

	r.UnregisterAgent("a1")

	t.Run("removes the agent from provider sets", func(t *testing.T) {
		assert.Equal(t, []string{"a2"}, r.FindProviders("translate"))
	})

	t.Run("prunes skills with no providers left", func(t *testing.T) {
		assert.Empty(t, r.FindProviders("compile"))
		assert.Equal(t, 1, r.GetStats().TotalSkills)
	})
}

func TestCreateRequest(t *testing.T) {
	t.Run("snapshots the provider list at creation", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterSkills("a1", []string{"translate"})
		r.RegisterSkills("a2", []string{"translate"})

		req, rej := r.CreateRequest("requester", "translate", json.RawMessage(`{"lang":"fr"}`))
		require.Nil(t, rej)
		assert.Equal(t, board.RequestStatusPending, req.Status)
		assert.Equal(t, []string{"a1", "a2"}, req.Providers)
	})

	t.Run("rejected when no providers exist", func(t *testing.T) {
		r := NewRegistry()

		_, rej := r.CreateRequest("requester", "levitate", nil)
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleNoProviders, rej.Rule)
	})
}

func TestClaimRequest(t *testing.T) {
	setup := func(t *testing.T) (*Registry, *board.SkillRequest) {
		r := NewRegistry()
		r.RegisterSkills("a1", []string{"translate"})
		req, rej := r.CreateRequest("requester", "translate", nil)
		require.Nil(t, rej)
		return r, req
	}

	t.Run("a snapshotted provider may claim", func(t *testing.T) {
		r, req := setup(t)

		claimed, rej := r.ClaimRequest(req.ID, "a1")
		require.Nil(t, rej)
		assert.Equal(t, board.RequestStatusClaimed, claimed.Status)
		assert.Equal(t, "a1", claimed.ClaimedBy)
	})

	t.Run("providers registered after creation cannot claim", func(t *testing.T) {
		r, req := setup(t)
		r.RegisterSkills("latecomer", []string{"translate"})

		_, rej := r.ClaimRequest(req.ID, "latecomer")
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleNotProvider, rej.Rule)
	})

	t.Run("double claim is rejected", func(t *testing.T) {
		r, req := setup(t)

		_, rej := r.ClaimRequest(req.ID, "a1")
		require.Nil(t, rej)
		_, rej = r.ClaimRequest(req.ID, "a1")
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleNotPending, rej.Rule)
	})

	t.Run("unknown request is rejected", func(t *testing.T) {
		r, _ := setup(t)

		_, rej := r.ClaimRequest(uuid.New().String(), "a1")
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleNotFound, rej.Rule)
	})
}

func TestCompleteRequest(t *testing.T) {
	setup := func(t *testing.T) (*Registry, *board.SkillRequest) {
		r := NewRegistry()
		r.RegisterSkills("a1", []string{"translate"})
		r.RegisterSkills("a2", []string{"translate"})
		req, rej := r.CreateRequest("requester", "translate", nil)
		require.Nil(t, rej)
		_, rej = r.ClaimRequest(req.ID, "a1")
		require.Nil(t, rej)
		return r, req
	}

	t.Run("claimant delivers the result", func(t *testing.T) {
		r, req := setup(t)

		done, rej := r.CompleteRequest(req.ID, "a1", json.RawMessage(`{"text":"bonjour"}`))
		require.Nil(t, rej)
		assert.Equal(t, board.RequestStatusCompleted, done.Status)
		assert.JSONEq(t, `{"text":"bonjour"}`, string(done.Result))
	})

	t.Run("non-claimant is rejected even when a provider", func(t *testing.T) {
		r, req := setup(t)

		_, rej := r.CompleteRequest(req.ID, "a2", nil)
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleWrongClaimant, rej.Rule)
	})
}

func TestPendingRequests(t *testing.T) {
	r := NewRegistry()

	now := int64(100)
	r.SetClock(func() int64 { now++; return now })

	r.RegisterSkills("a1", []string{"translate", "compile"})

	first, _ := r.CreateRequest("req1", "translate", nil)
	second, _ := r.CreateRequest("req2", "compile", nil)
	claimed, _ := r.CreateRequest("req3", "translate", nil)
	_, rej := r.ClaimRequest(claimed.ID, "a1")
	require.Nil(t, rej)

	t.Run("lists pending oldest first", func(t *testing.T) {
		pending := r.PendingRequests("")
		require.Len(t, pending, 2)
		assert.Equal(t, first.ID, pending[0].ID)
		assert.Equal(t, second.ID, pending[1].ID)
	})

	t.Run("filters by skill", func(t *testing.T) {
		pending := r.PendingRequests("translate")
		require.Len(t, pending, 1)
		assert.Equal(t, first.ID, pending[0].ID)
	})
}

func TestGetStats(t *testing.T) {
	r := NewRegistry()

	r.RegisterSkills("a1", []string{"translate", "compile"})
	r.RegisterSkills("a2", []string{"translate"})
	r.CreateRequest("req", "translate", nil)

	stats := r.GetStats()
	assert.Equal(t, 2, stats.TotalSkills)
	assert.Equal(t, 2, stats.TotalProviders)
	assert.Equal(t, 1, stats.PendingRequests)
	assert.Equal(t, map[string]int{"translate": 2, "compile": 1}, stats.ProvidersBySkill)
}
