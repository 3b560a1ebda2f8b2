package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-github/v58/github"
)

const (
	releaseOwner = "robinvdvleuten"
	releaseRepo  = "zhang"
)

// UpdateCmd checks the latest release and replaces the running binary
// after confirmation.
type UpdateCmd struct {
	Yes bool `short:"y" help:"Skip the confirmation prompt."`
}

func (c *UpdateCmd) Run() error {
	ctx := context.Background()
	client := github.NewClient(nil)

	release, _, err := client.Repositories.GetLatestRelease(ctx, releaseOwner, releaseRepo)
	if err != nil {
		return fmt.Errorf("cannot check latest release: %w", err)
	}

	latest := strings.TrimPrefix(release.GetTagName(), "v")
	current := strings.TrimPrefix(Version, "v")
	if current != "" && latest == current {
		printSuccess(os.Stdout, fmt.Sprintf("already on the latest version (%s)", latest))
		return nil
	}

	printInfof(os.Stdout, "new version available: %s (current: %s)", latest, displayVersion(current))

	asset := matchAsset(release)
	if asset == nil {
		printError(os.Stdout, fmt.Sprintf("no release asset for %s/%s, download it manually from %s",
			runtime.GOOS, runtime.GOARCH, release.GetHTMLURL()))
		return nil
	}

	if !c.Yes {
		confirmed, err := confirmUpdate(latest)
		if err != nil || !confirmed {
			return err
		}
	}

	return downloadAndReplace(ctx, asset)
}

func displayVersion(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}

// matchAsset finds the release asset built for this platform.
func matchAsset(release *github.RepositoryRelease) *github.ReleaseAsset {
	for _, asset := range release.Assets {
		name := strings.ToLower(asset.GetName())
		if strings.Contains(name, runtime.GOOS) && strings.Contains(name, runtime.GOARCH) {
			return asset
		}
	}
	return nil
}

func confirmUpdate(version string) (bool, error) {
	if !isTerminal() {
		return false, nil
	}
	var confirm bool
	form := huh.NewConfirm().
		Title(fmt.Sprintf("Update to %s?", version)).
		WithButtonAlignment(lipgloss.Left).
		Value(&confirm)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	return confirm, nil
}

// downloadAndReplace fetches the asset next to the running executable and
// renames it into place.
func downloadAndReplace(ctx context.Context, asset *github.ReleaseAsset) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.GetBrowserDownloadURL(), nil)
	if err != nil {
		return err
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return fmt.Errorf("cannot download release: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot download release: %s", response.Status)
	}

	staging := executable + ".update"
	file, err := os.OpenFile(staging, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, response.Body); err != nil {
		file.Close()
		os.Remove(staging)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(staging)
		return err
	}

	if err := os.Rename(staging, executable); err != nil {
		os.Remove(staging)
		return err
	}

	printSuccess(os.Stdout, "updated "+executable)
	return nil
}
