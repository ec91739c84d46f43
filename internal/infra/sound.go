package infra

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

const soundPlayer = "afplay"

// SoundNotifier implements domain.Notifier.
// It plays the configured asset, then the system alert sound, then rings the
// terminal bell, stopping at the first that starts.
type SoundNotifier struct {
	soundFile   string
	alertSound  string
	cmdRunner   CommandRunner
	fileChecker FileChecker
	bell        io.Writer
	logger      *zap.Logger
}

// NewSoundNotifier creates a notifier for the asset at soundFile.
func NewSoundNotifier(soundFile string, logger *zap.Logger) *SoundNotifier {
	return NewSoundNotifierWithDeps(soundFile, SystemAlertSound, &RealCommandRunner{}, &RealFileChecker{}, os.Stdout, logger)
}

// NewSoundNotifierWithDeps creates a notifier with injectable dependencies (for testing)
func NewSoundNotifierWithDeps(soundFile, alertSound string, cmdRunner CommandRunner, fileChecker FileChecker, bell io.Writer, logger *zap.Logger) *SoundNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SoundNotifier{
		soundFile:   soundFile,
		alertSound:  alertSound,
		cmdRunner:   cmdRunner,
		fileChecker: fileChecker,
		bell:        bell,
		logger:      logger,
	}
}

// Notify starts playback and returns without waiting for it.
func (n *SoundNotifier) Notify() error {
	for _, asset := range []string{n.soundFile, n.alertSound} {
		if asset == "" || !n.fileChecker.Exists(asset) {
			continue
		}
		if err := n.cmdRunner.Start(soundPlayer, asset); err != nil {
			n.logger.Debug("sound playback failed", zap.String("asset", asset), zap.Error(err))
			continue
		}
		return nil
	}

	if n.bell == nil {
		return fmt.Errorf("no sound asset available")
	}
	_, err := io.WriteString(n.bell, "\a")
	return err
}

// Ensure SoundNotifier implements domain.Notifier.
var _ domain.Notifier = (*SoundNotifier)(nil)
