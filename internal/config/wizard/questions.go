package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"

	"github.com/imamik/fwupgrade/internal/upgrade"
)

// runTopologyGroup prompts for the deployment type.
func runTopologyGroup(ctx context.Context, result *WizardResult) error {
	if result.Topology == "" {
		result.Topology = string(upgrade.Standalone)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Topology").
				Description("Upgrade a single unit or both units of a failover pair").
				Options(TopologyOptions...).
				Value(&result.Topology),
		).Title("Deployment"),
	).RunWithContext(ctx)
}

// runDevicesGroup prompts for one address per unit.
func runDevicesGroup(ctx context.Context, result *WizardResult) error {
	count := 1
	if result.Topology == string(upgrade.Pair) {
		count = 2
	}
	addresses := make([]string, count)
	copy(addresses, result.Addresses)

	fields := make([]huh.Field, count)
	for i := range addresses {
		title := "Device Address"
		desc := "Management address of the unit"
		if count == 2 {
			title = fmt.Sprintf("Unit %d Address", i+1)
			desc = "The primary unit first"
			if i == 1 {
				desc = "The secondary unit"
			}
		}
		fields[i] = huh.NewInput().
			Title(title).
			Description(desc).
			Placeholder("192.0.2.10").
			Value(&addresses[i]).
			Validate(validateAddress)
	}

	if err := huh.NewForm(huh.NewGroup(fields...).Title("Devices")).RunWithContext(ctx); err != nil {
		return err
	}
	if err := validateDistinct(addresses); err != nil {
		return err
	}
	result.Addresses = addresses
	return nil
}

// runCredentialsGroup prompts for the login name.
func runCredentialsGroup(ctx context.Context, result *WizardResult) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Description("Account with privilege level 15; the password is read from the environment").
				Placeholder("admin").
				Value(&result.Username).
				Validate(validateUsername),
		).Title("Credentials"),
	).RunWithContext(ctx)
}

// runImageGroup prompts for the image source, name and location.
func runImageGroup(ctx context.Context, result *WizardResult) error {
	if result.Location == "" {
		result.Location = Locations[0].Value
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Image Source").
				Description("Local path or s3://bucket/key").
				Placeholder("./asa962-smp-k8.bin").
				Value(&result.Source).
				Validate(validateSource),
			huh.NewSelect[string]().
				Title("File System").
				Description("Where the image is stored on the device").
				Options(LocationsToOptions()...).
				Value(&result.Location),
		).Title("Image"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	if result.Destination == "" {
		result.Destination = defaultDestination(result.Source)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Destination File Name").
				Description("Name of the image on the device").
				Value(&result.Destination).
				Validate(validateDestination),
		).Title("Image"),
	).RunWithContext(ctx)
}

// runTransferGroup prompts for the optional transfer settings.
func runTransferGroup(ctx context.Context, result *WizardResult) error {
	reclaim := strings.Join(result.Reclaim, ", ")

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Rate Limit (Optional)").
				Description("Upload bandwidth cap per second, e.g. 10MB. Leave empty for no limit.").
				Value(&result.RateLimit).
				Validate(validateRateLimit),
			huh.NewInput().
				Title("Files To Delete When Full (Optional)").
				Description("Comma-separated file names that may be removed when a unit lacks space").
				Placeholder("asa931-smp-k8.bin, asdm-771.bin").
				Value(&reclaim).
				Validate(validateReclaim),
		).Title("Transfer"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	result.Reclaim = parseList(reclaim)
	return nil
}

// PromptPassword asks for a password that was not supplied.
func PromptPassword(ctx context.Context, username string) (string, error) {
	var password string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Password for %s", username)).
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(validatePassword),
		),
	).RunWithContext(ctx)
	if err != nil {
		return "", err
	}
	return password, nil
}

// validateAddress checks a device address.
func validateAddress(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errAddressRequired
	}
	if strings.ContainsAny(s, " \t/") {
		return errAddressInvalid
	}
	return nil
}

// validateDistinct rejects a pair that names one unit twice.
func validateDistinct(addresses []string) error {
	if len(addresses) == 2 && strings.EqualFold(strings.TrimSpace(addresses[0]), strings.TrimSpace(addresses[1])) {
		return errDuplicateAddress
	}
	return nil
}

// validateUsername checks the login name.
func validateUsername(s string) error {
	if strings.TrimSpace(s) == "" {
		return errUsernameRequired
	}
	return nil
}

// validatePassword checks a prompted password.
func validatePassword(s string) error {
	if s == "" {
		return errPasswordRequired
	}
	return nil
}

// validateSource checks the image source.
func validateSource(s string) error {
	if strings.TrimSpace(s) == "" {
		return errSourceRequired
	}
	return nil
}

// validateDestination checks the file name on the device.
func validateDestination(s string) error {
	if s == "" || strings.ContainsAny(s, "/: ") {
		return errDestinationInvalid
	}
	return nil
}

// validateRateLimit accepts an empty value or a byte size.
func validateRateLimit(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := humanize.ParseBytes(s); err != nil {
		return errRateLimitInvalid
	}
	return nil
}

// validateReclaim checks the comma-separated deletion list.
func validateReclaim(s string) error {
	for _, name := range parseList(s) {
		if strings.ContainsAny(name, "/ ") {
			return errReclaimNameInvalid
		}
	}
	return nil
}

// parseList parses a comma-separated list, dropping empty entries.
func parseList(input string) []string {
	parts := strings.Split(input, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// defaultDestination is the base name of a path or object key.
func defaultDestination(source string) string {
	source = strings.TrimRight(source, "/")
	if i := strings.LastIndexAny(source, `/\`); i >= 0 {
		return source[i+1:]
	}
	return source
}
