package local

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"go.uber.org/zap"
)

const (
	DefaultImage = "browserless/chrome:latest"

	managedByLabel = "managed-by"
	managedBy      = "browsermatrix"
	devtoolsPort   = nat.Port("3000/tcp")
)

// Instance is one running browser container
type Instance struct {
	ContainerID string
	SessionID   string
	ControlURL  string
	Port        string
}

// Containers starts and stops browser containers
type Containers interface {
	Launch(ctx context.Context, sessionID string) (*Instance, error)
	Stop(ctx context.Context, containerID string) error
}

// Pool runs one headless Chrome container per session on the local docker daemon
type Pool struct {
	client *client.Client
	image  string
	logger *zap.Logger
	http   *http.Client
}

// NewPool connects to the docker daemon configured in the environment
func NewPool(img string, logger *zap.Logger) (*Pool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if img == "" {
		img = DefaultImage
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		client: cli,
		image:  img,
		logger: logger,
		http:   &http.Client{Timeout: 2 * time.Second},
	}, nil
}

// containerSpec describes the container for sessionID
func containerSpec(img, sessionID string) (*container.Config, *container.HostConfig) {
	config := &container.Config{
		Image: img,
		Labels: map[string]string{
			"session-id":   sessionID,
			managedByLabel: managedBy,
		},
		Env: []string{
			"CONNECTION_TIMEOUT=-1",
			"MAX_CONCURRENT_SESSIONS=1",
			"PREBOOT_CHROME=true",
			"EXIT_ON_HEALTH_FAILURE=false",
		},
		ExposedPorts: nat.PortSet{
			devtoolsPort: struct{}{},
		},
	}

	host := &container.HostConfig{
		PortBindings: nat.PortMap{
			devtoolsPort: []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: "0",
				},
			},
		},
	}

	return config, host
}

func containerName(sessionID string) string {
	if len(sessionID) > 8 {
		sessionID = sessionID[:8]
	}
	return "browsermatrix-" + sessionID
}

// Launch starts a container and waits until its DevTools endpoint answers
func (p *Pool) Launch(ctx context.Context, sessionID string) (*Instance, error) {
	config, host := containerSpec(p.image, sessionID)

	resp, err := p.client.ContainerCreate(ctx, config, host, nil, nil, containerName(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	instance, err := p.start(ctx, resp.ID, sessionID)
	if err != nil {
		// the caller never learns the id, so clean up here
		if stopErr := p.Stop(context.WithoutCancel(ctx), resp.ID); stopErr != nil {
			p.logger.Warn("Failed to remove container after failed launch",
				zap.String("container", resp.ID), zap.Error(stopErr))
		}
		return nil, err
	}

	p.logger.Debug("Browser container ready",
		zap.String("container", instance.ContainerID),
		zap.String("url", instance.ControlURL))
	return instance, nil
}

func (p *Pool) start(ctx context.Context, containerID, sessionID string) (*Instance, error) {
	if err := p.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	inspect, err := p.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}
	if inspect.NetworkSettings == nil || len(inspect.NetworkSettings.Ports[devtoolsPort]) == 0 {
		return nil, fmt.Errorf("container %s exposes no devtools port", containerID)
	}
	port := inspect.NetworkSettings.Ports[devtoolsPort][0].HostPort

	if err := p.waitReady(ctx, port); err != nil {
		return nil, fmt.Errorf("browser failed to become ready: %w", err)
	}

	return &Instance{
		ContainerID: containerID,
		SessionID:   sessionID,
		ControlURL:  fmt.Sprintf("ws://127.0.0.1:%s", port),
		Port:        port,
	}, nil
}

// Stop stops and removes a container
func (p *Pool) Stop(ctx context.Context, containerID string) error {
	timeout := 10
	if err := p.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}

	if err := p.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}

	return nil
}

// Prune removes containers left behind by earlier runs
func (p *Pool) Prune(ctx context.Context) (int, error) {
	list, err := p.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", managedByLabel+"="+managedBy)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list containers: %w", err)
	}

	removed := 0
	for _, c := range list {
		if err := p.client.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			p.logger.Warn("Failed to remove stale container", zap.String("container", c.ID), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// EnsureImage pulls the browser image unless it is already present
func (p *Pool) EnsureImage(ctx context.Context) error {
	images, err := p.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == p.image {
				return nil
			}
		}
	}

	p.logger.Info("Pulling browser image", zap.String("image", p.image))
	reader, err := p.client.ImagePull(ctx, p.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func (p *Pool) Close() error {
	return p.client.Close()
}

// waitReady polls /json/version until Chrome answers or ctx is done
func (p *Pool) waitReady(ctx context.Context, port string) error {
	url := fmt.Sprintf("http://127.0.0.1:%s/json/version", port)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := p.http.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
