// SPDX-License-Identifier: GPL-2.0-or-later

package client

const (
	//
	// client to server
	//
	Bad = 0
	Nop = 1
	// [[usercmd_t]
	Move = 2
	// [[userinfo string]
	Userinfo = 3
	// [string] message
	StringCmd = 4
)
