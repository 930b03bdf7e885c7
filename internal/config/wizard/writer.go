package wizard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/fwupgrade/internal/config"
)

// Function variable for dependency injection in tests.
var confirmOverwrite = defaultConfirmOverwrite

// WriteConfig writes the job config to a YAML file with a descriptive header.
// Passwords and keys are left out; they are read from the environment.
func WriteConfig(cfg *config.Config, outputPath string) error {
	out := *cfg
	out.Password = ""
	out.EnableSecret = ""
	out.S3.AccessKey = ""
	out.S3.SecretKey = ""

	yamlBytes, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(generateHeader(outputPath, cfg.RemoteImage()))
	sb.WriteString("\n")
	sb.Write(yamlBytes)

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// generateHeader creates the YAML file header comment.
func generateHeader(outputPath string, remoteImage bool) string {
	var s3 string
	if remoteImage {
		s3 = fmt.Sprintf(`
#   %s, %s - object storage credentials`, config.EnvS3AccessKey, config.EnvS3SecretKey)
	}
	return fmt.Sprintf(`# fwupgrade job configuration
# Generated by: fwupgrade init
# Generated at: %s
#
# Environment variables:
#   %s - device password (prompted when unset)
#   %s - enable secret, if the account needs one%s
#
# Usage:
#   export %s=<password>
#   fwupgrade upgrade -c %s
`, time.Now().Format(time.RFC3339), config.EnvPassword, config.EnvEnableSecret, s3, config.EnvPassword, outputPath)
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ConfirmOverwrite prompts the user to confirm overwriting an existing file.
func ConfirmOverwrite(path string) (bool, error) {
	return confirmOverwrite(path)
}

// defaultConfirmOverwrite is the default implementation that prompts via stdin.
func defaultConfirmOverwrite(path string) (bool, error) {
	fmt.Printf("\nFile already exists: %s\n", path)
	fmt.Print("Overwrite? (y/n): ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false, err
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
