// Package scriptdata embeds the Windows Script Host programs the Acrobat
// engine uses to talk to Acrobat's automation interface. The embedded
// filesystem is rooted at "acrobat/".
package scriptdata

import "embed"

// AcrobatFS contains the JScript programs. Each file is run as
// "cscript //NoLogo //E:JScript <file> args...".
//
//go:embed acrobat/*.js
var AcrobatFS embed.FS
