// Package ssh provides the SSH transport to appliance management interfaces.
//
// A [Client] dials with retry and authenticates with a password (plain or
// keyboard-interactive) or a private key. On top of a connection it offers
// an interactive CLI [Shell], which tracks the device prompt, enters
// privileged mode and disables paging, and an SCP upload used to push
// firmware images to the device file system.
//
// Security: host key verification is disabled unless a known_hosts file is
// configured. Appliances are usually reached over a dedicated management
// network; configure KnownHostsFile wherever that assumption does not hold.
package ssh
