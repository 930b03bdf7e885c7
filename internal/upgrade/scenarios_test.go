package upgrade_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/fwupgrade/internal/failover"
	"github.com/imamik/fwupgrade/internal/image"
	fwtesting "github.com/imamik/fwupgrade/internal/testing"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

func scenarioImage(size int) *image.Image {
	path := filepath.Join(GinkgoT().TempDir(), newImage)
	Expect(os.WriteFile(path, []byte(strings.Repeat("a", size)), 0o600)).To(Succeed())
	img, err := image.Open(path)
	Expect(err).NotTo(HaveOccurred())
	return img
}

func scenarioOrchestrator(dialer upgrade.Dialer, decider upgrade.Decider, waiter upgrade.Waiter) *upgrade.Orchestrator {
	o, err := upgrade.New(upgrade.Dependencies{
		Dialer:   dialer,
		Decider:  decider,
		Waiter:   waiter,
		Observer: fwtesting.NewMemoryObserver(),
	}, upgrade.Options{
		ReloadWait:      300 * time.Second,
		FailoverSettle:  10 * time.Second,
		ConnectAttempts: 2,
		ConnectDelay:    time.Millisecond,
	})
	Expect(err).NotTo(HaveOccurred())
	return o
}

var _ = Describe("Standalone upgrade", func() {
	var (
		ctx     context.Context
		dev     *fwtesting.FakeDevice
		dialer  *fwtesting.FakeDialer
		waiter  *fwtesting.RecordingWaiter
		decider *fwtesting.ScriptedDecider
		job     *upgrade.Job
	)

	BeforeEach(func() {
		ctx = context.Background()
		dev = fwtesting.NewFakeDevice("fw-a", 4000)
		dev.AddFile(oldImage, 3500)
		dialer = fwtesting.NewFakeDialer(map[string]*fwtesting.FakeDevice{"192.0.2.10": dev})
		waiter = &fwtesting.RecordingWaiter{}
		decider = &fwtesting.ScriptedDecider{Files: []string{oldImage}}
		job = fwtesting.NewJobBuilder().WithTarget("192.0.2.10").WithImage(newImage).Build()
	})

	Context("when the image is absent and space is short until one deletion", func() {
		It("defaults the destination to the source name", func() {
			Expect(job.DestinationImage).To(Equal(newImage))
		})

		It("frees space, transfers, verifies, boots and confirms the new version", func() {
			res, err := scenarioOrchestrator(dialer, decider, waiter).Run(ctx, job, scenarioImage(1000))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(upgrade.OutcomeCompleted))

			report := res.Devices[0]
			Expect(report.Deleted).To(Equal([]string{oldImage}))
			Expect(report.Transfer).To(Equal(upgrade.TransferOutcome{SpaceSufficient: true, ChecksumVerified: true}))

			By("running the transfer and boot steps in order")
			Expect(report.Completed()).To(Equal([]upgrade.Step{
				upgrade.StepConnect,
				upgrade.StepResolveFileState,
				upgrade.StepReclaimSpace,
				upgrade.StepEnableTransferProtocol,
				upgrade.StepTransfer,
				upgrade.StepDisableTransferProtocol,
				upgrade.StepVerifyChecksum,
				upgrade.StepSetBootVariable,
				upgrade.StepConfirmBootVariable,
				upgrade.StepPersistConfig,
				upgrade.StepReload,
				upgrade.StepWait,
				upgrade.StepReconnectAndVerifyVersion,
			}))

			By("waiting the reload dwell once")
			Expect(waiter.Waits).To(Equal([]time.Duration{300 * time.Second}))

			By("reporting the System image line")
			Expect(report.VersionLines).To(HaveLen(1))
			Expect(report.VersionLines[0]).To(ContainSubstring("System image"))
			Expect(report.VersionLines[0]).To(ContainSubstring(newImage))
			Expect(report.VersionVerified).To(BeTrue())

			Expect(dev.Commands()).To(ContainElements("delete disk0:/"+oldImage, "ssh scopy enable",
				"no ssh scopy enable", "boot system disk0:/"+newImage, "reload", "y", "show version"))
		})

		It("aborts without touching the device when the operator declines", func() {
			decider.Files = nil

			res, err := scenarioOrchestrator(dialer, decider, waiter).Run(ctx, job, scenarioImage(1000))
			Expect(err).To(MatchError(upgrade.ErrJobAborted))
			Expect(res.Outcome).To(Equal(upgrade.OutcomeAborted))
			Expect(dev.Uploads()).To(BeEmpty())
			Expect(dev.Reloads).To(BeZero())
		})
	})

	Context("when the destination file is already present", func() {
		BeforeEach(func() {
			dev.AddFile(newImage, 400)
		})

		It("resolves the same branch every time", func() {
			for range 3 {
				res, err := scenarioOrchestrator(dialer, decider, waiter).Run(ctx, job, scenarioImage(1000))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Devices[0].Transfer.ExistedAlready).To(BeTrue())
				Expect(res.Devices[0].Ran(upgrade.StepTransfer)).To(BeFalse())
				Expect(res.Devices[0].Ran(upgrade.StepVerifyChecksum)).To(BeFalse())
			}
			Expect(dev.Uploads()).To(BeEmpty())
		})
	})
})

var _ = Describe("Pair upgrade", func() {
	var (
		ctx      context.Context
		primary  *fwtesting.FakeDevice
		standby  *fwtesting.FakeDevice
		dialer   *fwtesting.FakeDialer
		waiter   *fwtesting.RecordingWaiter
		job      *upgrade.Job
		reloaded []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		primary = fwtesting.NewFakeDevice("fw-a", 10000)
		standby = fwtesting.NewFakeDevice("fw-b", 10000)
		fwtesting.Pair(primary, standby)
		dialer = fwtesting.NewFakeDialer(map[string]*fwtesting.FakeDevice{
			"192.0.2.10": primary,
			"192.0.2.11": standby,
		})

		reloaded = nil
		waiter = &fwtesting.RecordingWaiter{Hook: func(reason string) {
			if !strings.HasPrefix(reason, "reload of ") {
				return
			}
			// The unit that reloads must be standby at that moment.
			addr := strings.TrimPrefix(reason, "reload of ")
			dev := map[string]*fwtesting.FakeDevice{"192.0.2.10": primary, "192.0.2.11": standby}[addr]
			Expect(dev.CurrentRole()).To(Equal(failover.Standby), addr+" reloaded while active")
			reloaded = append(reloaded, addr)
		}}

		job = fwtesting.NewJobBuilder().
			WithTarget("192.0.2.10").
			WithTarget("192.0.2.11").
			WithImage(newImage).
			AsPair().
			Build()
	})

	It("demotes the active unit first and leaves the original standby active", func() {
		res, err := scenarioOrchestrator(dialer, &fwtesting.ScriptedDecider{}, waiter).Run(ctx, job, scenarioImage(1000))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(upgrade.OutcomeCompleted))

		Expect(reloaded).To(Equal([]string{"192.0.2.10", "192.0.2.11"}))
		Expect(res.Device("192.0.2.10").InitialRole).To(Equal(failover.Active))

		By("ending with the originally standby unit active and verified")
		Expect(res.FinalActive).To(Equal("192.0.2.11"))
		Expect(standby.CurrentRole()).To(Equal(failover.Active))
		Expect(primary.CurrentRole()).To(Equal(failover.Standby))
		Expect(res.AllWarnings()).To(BeEmpty())

		for _, dev := range []*fwtesting.FakeDevice{primary, standby} {
			Expect(dev.RunningImage).To(Equal(newImage))
			Expect(dev.Reloads).To(Equal(1))
		}
	})

	It("stops before any reload when the active unit cannot be demoted", func() {
		standby.IgnoreFailover = true

		res, err := scenarioOrchestrator(dialer, &fwtesting.ScriptedDecider{}, waiter).Run(ctx, job, scenarioImage(1000))
		Expect(err).To(MatchError(upgrade.ErrRoleVerification))
		Expect(res.Outcome).To(Equal(upgrade.OutcomeRoleVerification))
		Expect(reloaded).To(BeEmpty())
	})

	It("warns when the peer is not standby after the final failover", func() {
		primary.IgnoreFailover = false
		waiter.Hook = func(reason string) {
			if reason == "failover to 192.0.2.11" && standby.Reloads == 1 {
				// The other unit reports a failed state after the final switch.
				primary.Role = failover.Unknown
			}
		}

		res, err := scenarioOrchestrator(dialer, &fwtesting.ScriptedDecider{}, waiter).Run(ctx, job, scenarioImage(1000))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.FinalActive).To(Equal("192.0.2.11"))
		Expect(res.Device("192.0.2.10").Warnings).To(ContainElement(ContainSubstring("want standby")))
	})
})
