package matrix

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// DockerClient wraps the Docker SDK client
type DockerClient struct {
	cli    *client.Client
	logger *slog.Logger
}

// NewDockerClient creates a new Docker client from the environment
func NewDockerClient(logger *slog.Logger) (*DockerClient, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DockerClient{cli: cli, logger: logger}, nil
}

// Close closes the Docker client
func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// ContainerConfig holds configuration for creating a container
type ContainerConfig struct {
	Image     string
	CPUs      int
	Memory    int    // GB
	MountPath string // Host path to mount at /workspace
}

// Container represents a running Docker container
type Container struct {
	ID     string
	client *DockerClient
}

// resources converts a container config into Docker resource limits.
// CPUs are pinned to the first N cores so runs are comparable.
func resources(cfg ContainerConfig) container.Resources {
	memoryBytes := int64(cfg.Memory) * 1024 * 1024 * 1024
	cpuset := fmt.Sprintf("0-%d", cfg.CPUs-1)
	if cfg.CPUs == 1 {
		cpuset = "0"
	}
	return container.Resources{
		Memory:     memoryBytes,
		MemorySwap: memoryBytes, // Same as memory to disable swap
		NanoCPUs:   int64(cfg.CPUs) * 1e9,
		CpusetCpus: cpuset,
	}
}

// EnsureImage checks if the image exists locally, pulls if not
func (d *DockerClient) EnsureImage(ctx context.Context, imageName string) error {
	if _, _, err := d.cli.ImageInspectWithRaw(ctx, imageName); err == nil {
		return nil
	}

	d.logger.Info("pulling image", "image", imageName)
	reader, err := d.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageName, err)
	}

	return nil
}

// CreateContainer creates and starts a new container with resource limits
func (d *DockerClient) CreateContainer(ctx context.Context, cfg ContainerConfig) (*Container, error) {
	containerCfg := &container.Config{
		Image:      cfg.Image,
		Cmd:        []string{"sleep", "infinity"},
		WorkingDir: "/workspace",
	}

	hostCfg := &container.HostConfig{
		Resources: resources(cfg),
	}
	if cfg.MountPath != "" {
		hostCfg.Binds = []string{fmt.Sprintf("%s:/workspace", cfg.MountPath)}
	}

	resp, err := d.cli.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = d.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	d.logger.Debug("container started", "id", shortID(resp.ID), "cpus", cfg.CPUs, "memory_gb", cfg.Memory)
	return &Container{
		ID:     resp.ID,
		client: d,
	}, nil
}

// ExecResult holds the result of executing a command in a container
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Exec executes a command in the container and returns the result
func (c *Container) Exec(ctx context.Context, cmd []string, workDir string) (*ExecResult, error) {
	execCfg := container.ExecOptions{
		Cmd:          cmd,
		WorkingDir:   workDir,
		AttachStdout: true,
		AttachStderr: true,
	}

	c.client.logger.Debug("exec", "container", shortID(c.ID), "cmd", strings.Join(cmd, " "))
	execResp, err := c.client.cli.ContainerExecCreate(ctx, c.ID, execCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := c.client.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader); err != nil {
		return nil, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspectResp, err := c.client.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect exec: %w", err)
	}

	return &ExecResult{
		ExitCode: inspectResp.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// ExecShell executes a shell command in the container
func (c *Container) ExecShell(ctx context.Context, command string, workDir string) (*ExecResult, error) {
	return c.Exec(ctx, []string{"bash", "-c", command}, workDir)
}

// CopyFileToContainer copies a file from the host to the container,
// keeping its permissions
func (c *Container) CopyFileToContainer(ctx context.Context, srcPath, dstPath string) error {
	content, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}
	fileInfo, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	archive, err := tarFile(filepath.Base(dstPath), content, int64(fileInfo.Mode()))
	if err != nil {
		return err
	}

	err = c.client.cli.CopyToContainer(ctx, c.ID, filepath.Dir(dstPath), archive, container.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("failed to copy to container: %w", err)
	}
	return nil
}

// tarFile wraps a single file in a tar archive
func tarFile(name string, content []byte, mode int64) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	header := &tar.Header{
		Name:    name,
		Size:    int64(len(content)),
		Mode:    mode,
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return nil, fmt.Errorf("failed to write tar header: %w", err)
	}
	if _, err := tw.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write tar content: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close tar writer: %w", err)
	}
	return &buf, nil
}

// CopyDirFromContainer copies a directory from the container to the host
func (c *Container) CopyDirFromContainer(ctx context.Context, srcPath, dstPath string) error {
	reader, _, err := c.client.cli.CopyFromContainer(ctx, c.ID, srcPath)
	if err != nil {
		return fmt.Errorf("failed to copy from container: %w", err)
	}
	defer reader.Close()

	return untarDir(reader, dstPath)
}

// untarDir extracts a directory archive into dstPath, dropping the
// archive's top-level directory name
func untarDir(r io.Reader, dstPath string) error {
	if err := os.MkdirAll(dstPath, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar: %w", err)
		}

		parts := strings.SplitN(header.Name, "/", 2)
		if len(parts) < 2 || parts[1] == "" {
			continue // Skip the root directory entry
		}
		name := filepath.Clean(parts[1])
		if name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
			return fmt.Errorf("refusing to extract %q outside destination", header.Name)
		}
		target := filepath.Join(dstPath, name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			outFile, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			if _, err := io.Copy(outFile, tr); err != nil {
				outFile.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			outFile.Close()
		}
	}

	return nil
}

// Stop stops and removes the container
func (c *Container) Stop(ctx context.Context) error {
	timeout := 10 // seconds
	if err := c.client.cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
		c.client.logger.Debug("container stop failed, removing anyway", "id", shortID(c.ID), "error", err)
	}

	if err := c.client.cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
