package irc

// This file contains documentation for the IRC event handlers.
// The actual handler implementations are split across:
// - client.go: connection lifecycle, channel state and the modules.Bot methods
// - commands.go: private owner commands
// - roster.go: channel membership and prefix modes

/*
Handler Summary:

Connection Events:
- 376/422 (onConnect): End of MOTD / MOTD missing - bot is connected
  - Forgets channel state from a previous connection
  - Identifies to NickServ
  - Joins the configured channels after join_delay
- 005 (onISupport): PREFIX and CHANMODES feed the roster

Messages:
- PRIVMSG (onPrivMsg): ignores the bot's own lines
  - Private owner commands (*version, *audit, *nick, *restart, *shutdown)
    are handled here
  - Everything else goes to the module registry

Channel State:
- JOIN (onJoin): the bot joining starts tracking the channel, anyone else
  is added to it and passed to the join modules (auto mode)
- PART/KICK (onPart, onKick): the bot leaving drops the channel
- QUIT, NICK (onQuit, onNick): follow users across every channel
- MODE (onMode): prefix mode changes, honouring CHANMODES parameter rules
- 353 (onNames): RPL_NAMREPLY, multi-prefix and userhost-in-names aware

Nick Issues:
- 432 (onNickHeld): ERR_ERRONEUSNICKNAME - Nick is held
  - Switches to alternate nick
  - Schedules RELEASE and nick change
- 433 (onNickInUse): ERR_NICKNAMEINUSE - Nick in use
  - Switches to alternate nick
  - Schedules GHOST and nick change

CTCP:
- CTCP_VERSION: Responds with bot version information
*/
