package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/crm"
	"github.com/sells-group/outreach-cli/internal/dedup"
	"github.com/sells-group/outreach-cli/internal/events"
	"github.com/sells-group/outreach-cli/internal/followup"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/responder"
)

func TestLoadEngine_Defaults(t *testing.T) {
	useTestConfig(t)

	cls, q, err := loadEngine()
	require.NoError(t, err)
	assert.Equal(t, classify.ReportRequest, cls.Classify("send the report").ResponseType)
	assert.NotNil(t, q)
}

func TestLoadEngine_RulesFile(t *testing.T) {
	c := useTestConfig(t)
	c.Rules.Path = writeFile(t, "rules.yaml", `
classifier:
  categories:
    - name: pricing
      response_type: qualification
      priority: 7
      patterns: ["\\bquote\\b"]
  default_type: interested
  match_confidence: 0.9
  default_confidence: 0.5
`)

	cls, _, err := loadEngine()
	require.NoError(t, err)
	assert.Equal(t, classify.Qualification, cls.Classify("can I get a quote").ResponseType)
	assert.Equal(t, classify.Interested, cls.Classify("send the report").ResponseType)
}

func TestLoadEngine_InvalidRules(t *testing.T) {
	c := useTestConfig(t)
	c.Rules.Path = writeFile(t, "rules.yaml", `
classifier:
  categories:
    - name: broken
      response_type: interested
      priority: 1
      patterns: ["(unclosed"]
`)
	_, _, err := loadEngine()
	assert.Error(t, err)

	c.Rules.Path = filepath.Join(t.TempDir(), "missing.yaml")
	_, _, err = loadEngine()
	assert.Error(t, err)
}

func TestInitStore(t *testing.T) {
	c := useTestConfig(t)
	ctx := context.Background()

	st, err := openStore(ctx)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	c.Store.Driver = "mysql"
	_, err = initStore(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitGuard_StoreFallback(t *testing.T) {
	useTestConfig(t)
	ctx := context.Background()
	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	g, err := initGuard(ctx, st)
	require.NoError(t, err)
	assert.IsType(t, &dedup.StoreGuard{}, g)
}

func TestInitPublisher(t *testing.T) {
	c := useTestConfig(t)
	assert.IsType(t, events.NopPublisher{}, initPublisher())

	c.Kafka.Brokers = []string{"localhost:9092"}
	pub := initPublisher()
	assert.IsType(t, &events.KafkaPublisher{}, pub)
	assert.NoError(t, pub.Close())
}

func TestInitScheduler(t *testing.T) {
	c := useTestConfig(t)
	ctx := context.Background()
	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	s, closeFn, err := initScheduler(st)
	require.NoError(t, err)
	assert.IsType(t, &followup.StoreScheduler{}, s)
	closeFn()

	c.Followup.Backend = "cron"
	_, _, err = initScheduler(st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported followup backend")
}

func TestInitCRM(t *testing.T) {
	c := useTestConfig(t)

	sink, err := initCRM()
	require.NoError(t, err)
	assert.IsType(t, crm.NopSink{}, sink)

	c.Notion.Token = "secret_token"
	c.Notion.LeadDB = "db-leads"
	sink, err = initCRM()
	require.NoError(t, err)
	assert.IsType(t, &crm.NotionSink{}, sink)

	c.Salesforce.ClientID = "client"
	c.Salesforce.KeyPath = filepath.Join(t.TempDir(), "missing.pem")
	_, err = initCRM()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: read jwt private key")
}

func TestInitMailer(t *testing.T) {
	c := useTestConfig(t)

	m, err := initMailer()
	require.NoError(t, err)
	assert.IsType(t, responder.LogMailer{}, m)

	c.Responder.DryRun = false
	_, err = initMailer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")

	c.Responder.Endpoint = "https://mail.example.com/send"
	m, err = initMailer()
	require.NoError(t, err)
	assert.IsType(t, &responder.DeliveryMailer{}, m)
}

func TestInitApp(t *testing.T) {
	useTestConfig(t)
	ctx := context.Background()

	env, err := initApp(ctx, "process")
	require.NoError(t, err)
	defer env.Close()

	out, err := env.Pipeline.Process(ctx, model.IncomingMessage{
		SenderEmail: "jane@acme.com",
		Body:        "Please send the DATA report",
	})
	require.NoError(t, err)
	assert.Equal(t, classify.ReportRequest, out.Classification.ResponseType)
	require.NotNil(t, out.Autoresponse)
	assert.Contains(t, out.Autoresponse.ProviderID, "dry-run-")

	due, err := env.Store.DueFollowUps(ctx, time.Now().AddDate(1, 0, 0), 100)
	require.NoError(t, err)
	assert.Len(t, due, len(out.Qualification.FollowUpSchedule))
}

func TestInitApp_InvalidConfig(t *testing.T) {
	c := useTestConfig(t)
	c.Store.Driver = "oracle"

	_, err := initApp(context.Background(), "process")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}
