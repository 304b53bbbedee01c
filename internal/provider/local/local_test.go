package local

import (
	"context"
	"errors"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/browsermatrix/internal/logparse"
	"github.com/shehryarbajwa/browsermatrix/internal/session"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

type fakeContainers struct {
	launched []string
	stopped  []string
	err      error
}

func (f *fakeContainers) Launch(ctx context.Context, sessionID string) (*Instance, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.launched = append(f.launched, sessionID)
	return &Instance{ContainerID: "c-" + sessionID, SessionID: sessionID, ControlURL: "ws://127.0.0.1:1"}, nil
}

func (f *fakeContainers) Stop(ctx context.Context, containerID string) error {
	f.stopped = append(f.stopped, containerID)
	return nil
}

func TestProviderQuotaIsSlots(t *testing.T) {
	p := NewProvider(&fakeContainers{}, 3, 0)

	n, err := p.ConcurrencyLimit(context.Background(), models.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, Name, p.Name())
	assert.Equal(t, DefaultConnectTimeout, p.ConnectTimeout())
	assert.NoError(t, p.Close())

	assert.Equal(t, DefaultSlots, NewProvider(&fakeContainers{}, 0, 0).slots)
}

func TestDriverRejectsOtherBrowsers(t *testing.T) {
	containers := &fakeContainers{}
	d := NewDriver(containers)

	_, err := d.Init(context.Background(), models.BrowserDefinition{Name: "firefox", OS: "linux"})
	assert.ErrorIs(t, err, ErrUnsupportedBrowser)
	assert.Empty(t, containers.launched)
	assert.NoError(t, d.Quit(context.Background()))
	assert.Empty(t, containers.stopped)
}

func TestDriverLaunchFailure(t *testing.T) {
	d := NewDriver(&fakeContainers{err: errors.New("no docker")})

	_, err := d.Init(context.Background(), models.BrowserDefinition{Name: "chrome", OS: "linux"})
	assert.EqualError(t, err, "no docker")
}

func TestDriverLogsDrain(t *testing.T) {
	d := NewDriver(&fakeContainers{})
	d.record(models.RawLog{Level: "INFO", Message: "one"})

	types, err := d.LogTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{session.BrowserLogType}, types)

	logs, err := d.Logs(context.Background(), session.BrowserLogType)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	logs, err = d.Logs(context.Background(), session.BrowserLogType)
	require.NoError(t, err)
	assert.Empty(t, logs)

	_, err = d.Logs(context.Background(), "performance")
	assert.Error(t, err)
}

func TestConsoleEntryParsesLikeChromedriver(t *testing.T) {
	entry := consoleEntry(&proto.RuntimeConsoleAPICalled{
		Type: proto.RuntimeConsoleAPICalledTypeError,
		StackTrace: &proto.RuntimeStackTrace{CallFrames: []*proto.RuntimeCallFrame{
			{URL: "https://example.com/app.js", LineNumber: 11, ColumnNumber: 4},
		}},
		Timestamp: 1700000000000,
	})
	assert.Equal(t, "SEVERE", entry.Level)
	assert.Equal(t, `https://example.com/app.js 12:5 ""`, entry.Message)

	log := logparse.New().Normalize(entry, models.BrowserDefinition{Name: "chrome"})
	assert.Equal(t, "https://example.com/app.js", log.File)
	assert.Equal(t, 12, log.Line)
	assert.Equal(t, models.LevelSevere, log.Level)
	assert.False(t, log.Addon)
}

func TestLocatedWithoutURL(t *testing.T) {
	assert.Equal(t, `console-api 1:1 "hi"`, located("", 0, 0, "hi"))
}

func TestContainerSpec(t *testing.T) {
	config, host := containerSpec(DefaultImage, "0123456789")

	assert.Equal(t, DefaultImage, config.Image)
	assert.Equal(t, managedBy, config.Labels[managedByLabel])
	assert.Contains(t, config.ExposedPorts, devtoolsPort)
	require.Len(t, host.PortBindings[devtoolsPort], 1)
	assert.Equal(t, "127.0.0.1", host.PortBindings[devtoolsPort][0].HostIP)
	assert.Equal(t, "browsermatrix-01234567", containerName("0123456789"))
}
