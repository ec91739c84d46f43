//go:build integration

package integration

import (
	"context"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
	"github.com/eliteGoblin/focusd/card_gate/internal/infra"
	"github.com/eliteGoblin/focusd/card_gate/internal/session"
	"github.com/eliteGoblin/focusd/card_gate/internal/ui"
	"github.com/eliteGoblin/focusd/card_gate/internal/usecase"
	"github.com/eliteGoblin/focusd/card_gate/test/fixtures"
)

// scaledClock runs real timers shortened by factor.
type scaledClock struct {
	session.RealClock
	factor time.Duration
}

func (c scaledClock) Sleep(ctx context.Context, d time.Duration) error {
	return c.RealClock.Sleep(ctx, d/c.factor)
}

var hostnames = []string{"www.youtube.com", "youtube.com", "www.reddit.com", "reddit.com"}

func readHosts(path string) func() string {
	return func() string {
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}
}

var _ = Describe("Session", func() {
	var (
		tmpDir    string
		hostsPath string
		anki      *fixtures.FakeAnki
		out       *gbytes.Buffer
		bell      *gbytes.Buffer
		ctrl      *session.Controller
		ctx       context.Context
		cancel    context.CancelFunc
		done      chan error
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "cardgate-integration-*")
		Expect(err).NotTo(HaveOccurred())

		hostsPath, err = fixtures.WriteHostsFile(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		anki = fixtures.NewFakeAnki(10)
		out = gbytes.NewBuffer()
		bell = gbytes.NewBuffer()

		logger := zap.NewNop()
		console := ui.NewConsole(out, 1)
		registry := infra.NewHostsFile(hostsPath, logger)
		flusher := infra.NewResolverFlusherWithDeps(nil, &infra.RealCommandRunner{}, logger)
		notifier := infra.NewSoundNotifierWithDeps("", "", &infra.RealCommandRunner{}, &infra.RealFileChecker{}, bell, logger)
		gate := usecase.NewGate(registry, flusher, notifier, console, hostnames, logger)
		counter := infra.NewAnkiClient(anki.URL(), time.Second, logger)

		// One reward minute lasts 300ms.
		clock := scaledClock{factor: 200}

		ctrl = session.NewController(
			session.Config{PollInterval: 5 * time.Second, StallThreshold: 3},
			domain.NewSession(1, 5, hostnames),
			gate, counter, console, clock, logger,
		)

		watcher, err := infra.NewHostsWatcher(hostsPath, logger)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(watcher.Close)
		ctrl.WatchHosts(watcher.Changes())

		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
	})

	AfterEach(func() {
		cancel()
		anki.Close()
		os.RemoveAll(tmpDir)
	})

	start := func() {
		go func() { done <- ctrl.Run(ctx) }()
	}

	Describe("starting", func() {
		It("blocks every host and reads the baseline", func() {
			start()

			Eventually(readHosts(hostsPath)).Should(ContainSubstring("127.0.0.1 reddit.com\n"))
			for _, h := range hostnames {
				Expect(readHosts(hostsPath)()).To(ContainSubstring("127.0.0.1 " + h + "\n"))
			}
			Eventually(out).Should(gbytes.Say("Progress: 0/5 cards completed"))
			Expect(ctrl.Session().Baseline).To(Equal(10))
		})

		Context("when Anki is not reachable", func() {
			It("fails but leaves the sites blocked", func() {
				anki.SetDown(true)
				start()

				var err error
				Eventually(done).Should(Receive(&err))
				Expect(err).To(MatchError(domain.ErrBaselineUnavailable))
				Expect(readHosts(hostsPath)()).To(ContainSubstring("127.0.0.1 youtube.com"))
			})
		})
	})

	Describe("a full reward cycle", func() {
		It("unblocks at quota, plays the alert and blocks again", func() {
			start()
			Eventually(out).Should(gbytes.Say("Progress: 0/5"))

			anki.Review(5)
			Eventually(readHosts(hostsPath), "10s").Should(Equal(fixtures.StockHosts))
			Eventually(bell).Should(gbytes.Say("\a"))

			Eventually(readHosts(hostsPath), "5s").Should(ContainSubstring("127.0.0.1 reddit.com"))
			Eventually(func() int { return ctrl.Session().Baseline }).Should(Equal(15))
		})
	})

	Describe("tamper guard", func() {
		It("re-adds entries stripped during monitoring", func() {
			start()
			Eventually(out).Should(gbytes.Say("Progress: 0/5"))

			stripped := strings.ReplaceAll(readHosts(hostsPath)(), "127.0.0.1 reddit.com\n", "")
			Expect(os.WriteFile(hostsPath, []byte(stripped), 0644)).To(Succeed())

			Eventually(readHosts(hostsPath), "15s").Should(ContainSubstring("127.0.0.1 reddit.com\n"))
			Eventually(out).Should(gbytes.Say("re-blocked 1 entries"))
		})
	})

	Describe("interruption", func() {
		It("stops cleanly with sites blocked", func() {
			start()
			Eventually(out).Should(gbytes.Say("Progress: 0/5"))

			cancel()

			var err error
			Eventually(done).Should(Receive(&err))
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.State()).To(Equal(domain.StateTerminated))
			Expect(out).To(gbytes.Say("Sites remain blocked for focus!"))
			Expect(readHosts(hostsPath)()).To(ContainSubstring("127.0.0.1 www.youtube.com"))
		})
	})
})

var _ = Describe("Manual unblock", func() {
	It("restores the hosts file without notifying", func() {
		tmpDir, err := os.MkdirTemp("", "cardgate-integration-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(tmpDir)

		hostsPath, err := fixtures.WriteHostsFile(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		out := gbytes.NewBuffer()
		bell := gbytes.NewBuffer()
		registry := infra.NewHostsFile(hostsPath, logger)
		notifier := infra.NewSoundNotifierWithDeps("", "", &infra.RealCommandRunner{}, &infra.RealFileChecker{}, bell, logger)
		gate := usecase.NewGate(registry, nil, notifier, ui.NewConsole(out, 1), hostnames, logger)

		Expect(gate.Engage(context.Background())).To(Succeed())
		Expect(gate.Release(context.Background(), domain.ReleaseManual)).To(Succeed())

		Expect(readHosts(hostsPath)()).To(Equal(fixtures.StockHosts))
		Expect(bell.Contents()).To(BeEmpty())
		Expect(out).To(gbytes.Say("SITES UNBLOCKED"))
	})
})
