// Package reply holds the fixed table of numeric reply codes the
// dispatcher formats responses with. Each numeric is a named string
// constant whose name follows its RFC mnemonic (RPL_*/ERR_*), rather than
// hiding them behind an enum the rest of the codebase has to decode.
package reply

const (
	RPLWelcome     = "001"
	RPLYourHost    = "002"
	RPLCreated     = "003"
	RPLMyInfo      = "004"
	RPLAway        = "301"
	RPLUnAway      = "305"
	RPLNowAway     = "306"
	RPLWhoisUser     = "311"
	RPLWhoisServer   = "312"
	RPLWhoisOperator = "313"
	RPLEndOfWho      = "315"
	RPLWhoReply      = "352"
	RPLListStart     = "321"
	RPLList          = "322"
	RPLListEnd       = "323"
	RPLNoTopic       = "331"
	RPLTopic         = "332"
	RPLInviting      = "341"
	RPLNamReply      = "353"
	RPLLinks         = "364"
	RPLEndOfLinks    = "365"
	RPLEndOfNames    = "366"
	RPLBanList       = "367"
	RPLEndOfBan      = "368"
	RPLYoureOper     = "381"

	ERRNoSuchNick     = "401"
	ERRNoSuchChannel  = "403"
	ERRCannotSendToChan = "404"
	ERRNoRecipient    = "411"
	ERRNoTextToSend   = "412"
	ERRNoNicknameGiven = "431"
	ERRNicknameInUse  = "433"
	ERRUserNotInChannel = "441"
	ERRNotOnChannel   = "442"
	ERRUserOnChannel  = "443"
	ERRNeedMoreParams = "461"
	ERRAlreadyRegistered = "462"
	ERRKeySet         = "467"
	ERRChannelIsFull  = "471"
	ERRUnknownMode    = "472"
	ERRInviteOnlyChan = "473"
	ERRBannedFromChan = "474"
	ERRBadChannelKey  = "475"
	ERRNoPrivileges   = "481"
	ERRChanOpPrivsNeeded = "482"
	ERRNoOperHost     = "491"
)

// Numeric reports whether command is a three digit numeric reply code as
// opposed to a protocol verb. Numeric replies get the target nickname
// (or "*" before one is known) prepended to their parameter list; verbs
// do not.
func Numeric(command string) bool {
	if len(command) != 3 {
		return false
	}
	for _, c := range command {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
