package schedule

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/campusbot/adapter/cli"
	scheduleApp "github.com/felixgeelhaar/campusbot/internal/schedule/application"
	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
	"github.com/felixgeelhaar/campusbot/internal/schedule/render"
)

type stubSchedule struct {
	runErr   error
	runs     int
	outcome  scheduleApp.ClearOutcome
	clearErr error
	snapshot domain.ScheduleState
}

func (s *stubSchedule) Run(context.Context) error {
	s.runs++
	return s.runErr
}

func (s *stubSchedule) ClearChangeMessage(context.Context) (scheduleApp.ClearOutcome, error) {
	return s.outcome, s.clearErr
}

func (s *stubSchedule) Snapshot(context.Context) (domain.ScheduleState, error) {
	return s.snapshot, nil
}

func run(t *testing.T, svc *stubSchedule, args ...string) (string, error) {
	t.Helper()
	cli.SetApp(cli.NewApp(svc, nil, nil, render.NewFormatter(time.UTC), nil))
	t.Cleanup(func() { cli.SetApp(nil) })

	var out bytes.Buffer
	Cmd.SetOut(&out)
	Cmd.SetErr(&out)
	Cmd.SetArgs(args)
	err := Cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateCommand(t *testing.T) {
	svc := &stubSchedule{}

	out, err := run(t, svc, "create")

	require.NoError(t, err)
	assert.Equal(t, 1, svc.runs)
	assert.Contains(t, out, "✅ Horário atualizado.")
}

func TestCreateCommand_Failure(t *testing.T) {
	svc := &stubSchedule{runErr: errors.New("portal timeout")}

	out, err := run(t, svc, "create")

	require.Error(t, err)
	assert.ErrorIs(t, err, errCommandFailed)
	assert.Contains(t, out, "❌ Algo correu mal ao executar o comando.")
}

func TestClearCommand(t *testing.T) {
	tests := []struct {
		name    string
		outcome scheduleApp.ClearOutcome
		want    string
	}{
		{"removed", scheduleApp.ClearRemoved, "✅ Mensagem de alterações do horário removida."},
		{"nothing", scheduleApp.ClearNothing, "ℹ️ Não existe mensagem de alterações para limpar."},
		{"no channel", scheduleApp.ClearNoChannel, "❌ Não consegui encontrar o canal configurado para o horário."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, &stubSchedule{outcome: tt.outcome}, "clear")

			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestClearCommand_Failure(t *testing.T) {
	out, err := run(t, &stubSchedule{clearErr: errors.New("disk full")}, "clear")

	require.Error(t, err)
	assert.Contains(t, out, "❌ Algo correu mal")
}

func TestShowCommand(t *testing.T) {
	svc := &stubSchedule{snapshot: domain.ScheduleState{
		Hash:          "abc123",
		MessageID:     "m-1",
		LastSuccessAt: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC),
		Entries: []domain.Entry{
			{Title: "Programação (PROG1)", Time: "09:00", Location: "Sala 1", Date: "2024-03-04"},
			{Title: "Redes (RED)", Time: "14:00", Date: "2024-03-05"},
		},
	}}

	out, err := run(t, svc, "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Programação (PROG1)")
	assert.Contains(t, out, "Redes (RED)")
	assert.Contains(t, out, "Aulas: 2 | Hash: abc123")
	assert.Contains(t, out, "Mensagem: m-1 | Alterações: —")
	assert.Contains(t, out, "Último sucesso: 2024-03-04 08:00")
}

func TestShowCommand_Empty(t *testing.T) {
	out, err := run(t, &stubSchedule{}, "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Sem aulas guardadas.")
	assert.Contains(t, out, "Última tentativa: —")
}

func TestCommands_RequireApp(t *testing.T) {
	cli.SetApp(nil)
	Cmd.SetArgs([]string{"create"})
	Cmd.SetOut(&bytes.Buffer{})
	Cmd.SetErr(&bytes.Buffer{})

	err := Cmd.ExecuteContext(context.Background())

	assert.EqualError(t, err, "app not initialized")
}
