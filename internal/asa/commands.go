package asa

import "fmt"

// Fixed commands.
const (
	CmdEnable           = "enable"
	CmdPagerOff         = "terminal pager 0"
	CmdConfigure        = "configure terminal"
	CmdEnd              = "end"
	CmdScopyEnable      = "ssh scopy enable"
	CmdScopyDisable     = "no ssh scopy enable"
	CmdShowBoot         = "show boot"
	CmdWriteMem         = "write mem"
	CmdReload           = "reload"
	CmdConfirm          = "y"
	CmdShowFailover     = "show failover"
	CmdFailoverActive   = "failover active"
	CmdShowVersion      = "show version"
	DefaultFileLocation = "disk0:"
)

// FilePath joins a file system location such as "disk0:" with a file name.
func FilePath(location, name string) string {
	return fmt.Sprintf("%s/%s", location, name)
}

// Dir lists a location or a single file.
func Dir(path string) string {
	return "dir " + path
}

// Delete removes a file from a location.
func Delete(location, name string) string {
	return "delete " + FilePath(location, name)
}

// BootSystem points the boot variable at an image.
func BootSystem(location, name string) string {
	return "boot system " + FilePath(location, name)
}

// VerifyMD5 asks the device for the MD5 digest of a file.
func VerifyMD5(location, name string) string {
	return "verify /md5 " + FilePath(location, name)
}
