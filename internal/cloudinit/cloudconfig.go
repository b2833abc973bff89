// Package cloudinit renders the cloud-config document injected into hosts
// at provisioning time.
//
// The document is fully derived from a fixed template plus the SSH keys of
// the current reservation: a locked-down administrative account and one
// externally reachable account whose authorized keys are replaced wholesale
// on every render. Overwriting an existing document is therefore always
// safe.
package cloudinit

import (
	"fmt"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"
)

// ExternalUser is the account reachable by reservation holders; its
// authorized keys are replaced with the keys from the current intent.
const ExternalUser = "prognose"

// adminUser is the fixed administrative account present on every host.
const adminUser = "restart.admin"

// adminPasswdHash is the crypt(3) hash for the administrative account.
const adminPasswdHash = "$6$/O/rvHuhqfc00hDw$3X4ILugPTXw9JTtgWNh16oeFqLcsMOaPwzk7TBxtwm5QXa2vALMC2W7/JToC99ngxpKla80QpVAEs3jA8I0rk0" //nolint:gosec

type account struct {
	Name              string   `yaml:"name"`
	Groups            string   `yaml:"groups,omitempty"`
	LockPasswd        bool     `yaml:"lock_passwd"`
	Passwd            string   `yaml:"passwd,omitempty"`
	Sudo              string   `yaml:"sudo,omitempty"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys,omitempty"`
}

type document struct {
	SSHPwAuth bool      `yaml:"ssh_pwauth"`
	Groups    []string  `yaml:"groups"`
	Users     []account `yaml:"users"`
}

// Render produces the #cloud-config document with the given authorized keys
// assigned to the external account. An empty key list is a valid
// instruction: the external account is then reachable only through whatever
// break-glass access the administrative account provides.
func Render(sshKeys []string) (string, error) {
	doc := document{
		SSHPwAuth: true,
		Groups:    []string{"admingroup", "cloud-users"},
		Users: []account{
			{
				Name:       adminUser,
				Groups:     "admingroup",
				LockPasswd: false,
				Passwd:     adminPasswdHash,
				Sudo:       "ALL=(ALL) NOPASSWD:ALL",
			},
			{
				Name:              ExternalUser,
				Groups:            "cloud-users",
				LockPasswd:        true,
				Sudo:              "ALL=(ALL) NOPASSWD:ALL",
				SSHAuthorizedKeys: sshKeys,
			},
		},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cloud-config: %w", err)
	}
	return "#cloud-config\n" + string(out), nil
}

// FilterKeys splits the submitted SSH public keys into parseable and
// rejected ones. Rejected keys never reach the host; the caller decides how
// loudly to complain.
func FilterKeys(keys []string) (valid, rejected []string) {
	for _, key := range keys {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
			rejected = append(rejected, key)
			continue
		}
		valid = append(valid, key)
	}
	return valid, rejected
}
