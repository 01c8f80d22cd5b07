package cli

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
	chatservice "github.com/zhouzirui/z-salon/backend/internal/service/chat"
	"github.com/zhouzirui/z-salon/backend/internal/service/dialogue"
	"github.com/zhouzirui/z-salon/backend/internal/service/imagegen"
)

type echoGenerator struct {
	calls int
}

func (g *echoGenerator) Complete(_ context.Context, _ string, messages []*schema.Message) (*schema.Message, error) {
	g.calls++
	return schema.AssistantMessage("echo "+messages[len(messages)-1].Content, nil), nil
}

func (g *echoGenerator) Stream(ctx context.Context, op string, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	msg, _ := g.Complete(ctx, op, messages)
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestChoosePersona(t *testing.T) {
	options := persona.NewMemoryStore(persona.Seed()).ListKind(persona.KindPhilosopher)
	var out bytes.Buffer

	in := bufio.NewReader(strings.NewReader("42\nsocrates\n"))
	p, err := choosePersona(in, &out, "Pick:", options, "")
	require.NoError(t, err)
	assert.Equal(t, "socrates", p.ID)
	assert.Contains(t, out.String(), "Invalid choice.")
	assert.Contains(t, out.String(), "Pete Holmes (comedian)")

	in = bufio.NewReader(strings.NewReader("1\n"))
	p, err = choosePersona(in, &out, "Pick:", options, options[0].ID)
	require.NoError(t, err)
	assert.Equal(t, options[1].ID, p.ID, "excluded entry is not numbered")

	_, err = choosePersona(bufio.NewReader(strings.NewReader("")), &out, "Pick:", options, "")
	assert.ErrorIs(t, err, errNoSelection)
}

func TestRunChatLoop(t *testing.T) {
	store := persona.NewMemoryStore(persona.Seed())
	gen := &echoGenerator{}
	svc := chatservice.NewService(store, gen)
	p, _ := store.FindByID("alfred")

	var out bytes.Buffer
	env := &cliEnv{out: &out}
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	input := "hello\n123-45-6789\n/reset\nagain\n/quit\nnever sent\n"
	err := runChat(cmd, env, svc, p, bufio.NewReader(strings.NewReader(input)))
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls, "rejected prompt and commands are not forwarded")
	text := out.String()
	assert.Contains(t, text, "echo hello")
	assert.Contains(t, text, "sensitive data")
	assert.Contains(t, text, "History cleared.")
	assert.NotContains(t, text, "never sent")
}

func TestPrinterPair(t *testing.T) {
	var out bytes.Buffer
	printer := NewPrinter(&out, &PlainTextRenderer{})
	transcript := &dialogue.Transcript{
		First:  dialogue.Participant{Name: "Socrates"},
		Second: dialogue.Participant{Name: "Pete Holmes", Comedian: true},
	}

	printer.Pair(transcript, dialogue.TurnPair{Phase: dialogue.PhaseRound, Round: 2, First: "What is pizza?", Second: "Round."})

	text := out.String()
	assert.Contains(t, text, "## Round 2")
	assert.Contains(t, text, "Socrates:")
	assert.Contains(t, text, "Pete Holmes:")
	assert.Less(t, strings.Index(text, "What is pizza?"), strings.Index(text, "Round."))
}

func TestWriteVariations(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	images := []imagegen.Image{
		{Data: []byte("one"), ContentType: "image/png"},
		{Data: []byte("two"), ContentType: "image/png"},
	}

	paths, err := writeVariations(dir, "cat", images)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "cat-variation-2.png"), paths[1])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"chat", "simulate", "transcribe", "vary", "personas"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestPickPhilosopherAcceptsCustomName(t *testing.T) {
	store := persona.NewMemoryStore(persona.Seed())
	env := &cliEnv{out: &bytes.Buffer{}}
	options := store.ListKind(persona.KindPhilosopher)

	p, err := pickPhilosopher(nil, env, store, options, "Friedrich Nietzsche", "", "Pick:")
	require.NoError(t, err)
	assert.Equal(t, dialogue.Participant{Name: "Friedrich Nietzsche"}, p)
	assert.Empty(t, personaID(store, p))

	p, err = pickPhilosopher(nil, env, store, options, "pete holmes", "", "Pick:")
	require.NoError(t, err)
	assert.True(t, p.Comedian)
	assert.Equal(t, "pete-holmes", personaID(store, p))

	_, err = pickPhilosopher(nil, env, store, options, "jar-jar", "", "Pick:")
	assert.ErrorIs(t, err, dialogue.ErrInvalidRequest)
}

func TestCheckRounds(t *testing.T) {
	orch := dialogue.NewOrchestrator(nil, dialogue.WithMaxRounds(3))

	assert.NoError(t, checkRounds(orch, 0))
	assert.NoError(t, checkRounds(orch, 3))
	assert.EqualError(t, checkRounds(orch, 4), "rounds must be between 0 and 3")
	assert.Error(t, checkRounds(orch, -1))
}
