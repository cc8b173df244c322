package messages

// Generic codes, the coarse "kind" of a server message
const (
	GenericNone    = 0x00
	GenericUsage   = 0x01 // request not consistent with dox
	GenericUnknown = 0x02 // using unknown entity
	GenericContext = 0x03 // using entity in wrong context
	GenericIllegal = 0x04 // trying to do something you can't
	GenericNotYet  = 0x05 // something must be corrected first
	GenericProtect = 0x06 // protections prevented operation
	GenericEmpty   = 0x11 // action returned empty results
	GenericFault   = 0x21 // inexplicable program fault
	GenericClient  = 0x22 // client side program errors
	GenericAdmin   = 0x23 // server administrative action required
	GenericConfig  = 0x24 // client configuration inadequate
	GenericUpgrade = 0x25 // client or server too old to interact
	GenericComm    = 0x26 // communications error
	GenericTooBig  = 0x27 // too big to handle
)

// Subsystem codes
const (
	SubsystemOS        = 0
	SubsystemSupport   = 1
	SubsystemLibrarian = 2
	SubsystemRPC       = 3
	SubsystemDB        = 4
	SubsystemDBSupport = 5
	SubsystemDM        = 6
	SubsystemServer    = 7
	SubsystemClient    = 8
	SubsystemInfo      = 9
	SubsystemHelp      = 10
	SubsystemSpec      = 11
	SubsystemFTPD      = 12
	SubsystemBroker    = 13
)

// IsFileNotFound reports whether the message is the "no such file(s)"
// warning that fstat-style queries return for files the server never saw.
func (m *Message) IsFileNotFound() bool {
	return m.Severity() == SeverityWarning && m.Generic() == GenericEmpty
}
