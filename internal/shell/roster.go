package shell

import (
	"context"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/queries"
	"github.com/matheus3301/beazap/internal/query"
)

type attendantPatch struct {
	id int64
	in backend.AttendantUpdate
}

// roster holds the attendant and team mutations. Each invalidates the list
// and metrics families of what it changed, for every instance.
type roster struct {
	createAttendant *query.Mutation[backend.AttendantInput, *backend.Attendant]
	updateAttendant *query.Mutation[attendantPatch, *backend.Attendant]
	deleteAttendant *query.Mutation[int64, struct{}]
	createTeam      *query.Mutation[backend.TeamInput, *backend.Team]
	deleteTeam      *query.Mutation[int64, struct{}]
}

func invalidates[V any](kind queries.MutationKind) func(V) []query.Key {
	return func(V) []query.Key { return queries.Invalidations(kind, 0) }
}

func newRoster(c *query.Client, api *backend.Client) *roster {
	return &roster{
		createAttendant: query.NewMutation(c, api.CreateAttendant,
			query.MutationOptions[backend.AttendantInput, *backend.Attendant]{
				Invalidates: invalidates[backend.AttendantInput](queries.CreateAttendant),
			}),
		updateAttendant: query.NewMutation(c, func(ctx context.Context, p attendantPatch) (*backend.Attendant, error) {
			return api.UpdateAttendant(ctx, p.id, p.in)
		}, query.MutationOptions[attendantPatch, *backend.Attendant]{
			Invalidates: invalidates[attendantPatch](queries.UpdateAttendant),
		}),
		deleteAttendant: query.NewMutation(c, func(ctx context.Context, id int64) (struct{}, error) {
			return struct{}{}, api.DeleteAttendant(ctx, id)
		}, query.MutationOptions[int64, struct{}]{
			Invalidates: invalidates[int64](queries.DeleteAttendant),
		}),
		createTeam: query.NewMutation(c, api.CreateTeam,
			query.MutationOptions[backend.TeamInput, *backend.Team]{
				Invalidates: invalidates[backend.TeamInput](queries.CreateTeam),
			}),
		deleteTeam: query.NewMutation(c, func(ctx context.Context, id int64) (struct{}, error) {
			return struct{}{}, api.DeleteTeam(ctx, id)
		}, query.MutationOptions[int64, struct{}]{
			Invalidates: invalidates[int64](queries.DeleteTeam),
		}),
	}
}

func (s *Shell) CreateAttendant(ctx context.Context, in backend.AttendantInput) (*backend.Attendant, error) {
	return s.roster.createAttendant.Mutate(ctx, in)
}

func (s *Shell) UpdateAttendant(ctx context.Context, id int64, in backend.AttendantUpdate) (*backend.Attendant, error) {
	return s.roster.updateAttendant.Mutate(ctx, attendantPatch{id: id, in: in})
}

func (s *Shell) DeleteAttendant(ctx context.Context, id int64) error {
	_, err := s.roster.deleteAttendant.Mutate(ctx, id)
	return err
}

func (s *Shell) CreateTeam(ctx context.Context, in backend.TeamInput) (*backend.Team, error) {
	return s.roster.createTeam.Mutate(ctx, in)
}

func (s *Shell) DeleteTeam(ctx context.Context, id int64) error {
	_, err := s.roster.deleteTeam.Mutate(ctx, id)
	return err
}
