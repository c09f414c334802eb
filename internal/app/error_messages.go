// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains the user-facing messages printed by the reflog
// binaries. Log messages stay next to the code that writes them; only text
// meant for a person at the terminal lives here.
package app

const (
	// MsgVaultCreated is printed once, when this device creates a new
	// vault. The argument is the base64 salt every other device needs.
	MsgVaultCreated = "vault created; to add another device, set APP_VAULT_SALT=%s on it\n"

	// MsgVaultJoined is printed when this device sets up its vault with the
	// salt of an existing one.
	MsgVaultJoined = "vault set up with the shared salt; waiting for the first sync\n"

	// MsgWrongPassphrase is printed when the passphrase does not unlock the
	// local vault.
	MsgWrongPassphrase = "the passphrase does not unlock this vault"

	// MsgFollowing is printed when another agent on the same profile holds
	// the sync leadership.
	MsgFollowing = "another agent is syncing this profile; local changes are forwarded to it\n"

	// MsgAutoLocked is shown when the vault locks after inactivity.
	MsgAutoLocked = "vault locked after inactivity"

	// MsgRegisterFailed is shown when the device could not be registered;
	// registration is retried on the next election.
	MsgRegisterFailed = "device registration failed: %s"

	// MsgConfigError prefixes configuration problems found at startup.
	MsgConfigError = "configuration error: %v\n"
)
