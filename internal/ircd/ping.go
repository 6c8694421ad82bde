package ircd

import (
	"fmt"
	"time"
)

// RunPingSweep periodically pings locally connected clients that have
// gone quiet for PingTime and disconnects anyone quiet past DeadTime. It
// runs until d.Shutdown closes.
func RunPingSweep(d *Daemon) {
	if d.Cfg.PingTime <= 0 {
		return
	}

	ticker := time.NewTicker(d.Cfg.PingTime / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.Shutdown:
			return
		case <-ticker.C:
			sweepOnce(d)
		}
	}
}

func sweepOnce(d *Daemon) {
	now := time.Now().Unix()
	for _, u := range d.LocalUsers() {
		idle := now - u.lastActivity
		switch {
		case idle > int64(d.Cfg.DeadTime.Seconds()):
			quitUser(d, u, "Ping timeout")
		case idle > int64(d.Cfg.PingTime.Seconds()):
			u.Send(fmt.Sprintf("PING :%s", d.Name))
		}
	}
}
