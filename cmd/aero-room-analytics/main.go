// Command aero-room-analytics prints the relay's stored analytics as tables.
// Badger locks its directory, so point it at a stopped relay's store or a copy.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/analytics"
	"github.com/wilsonzlin/aero/proxy/webrtc-room-relay/internal/config"
)

func main() {
	dbPath := flag.String("db", config.DefaultAnalyticsDBPath, "Path to the analytics Badger directory")
	limit := flag.Int("sessions", 20, "Number of recent session events to show")
	flag.Parse()

	store, err := analytics.OpenBadgerReadOnly(*dbPath, nil)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer store.Close()

	if err := report(os.Stdout, store, *limit); err != nil {
		log.Fatal(err)
	}
}

func report(w io.Writer, store analytics.Reader, limit int) error {
	stats, err := store.Stats()
	if err != nil {
		return err
	}
	unique, err := store.UniqueUsers()
	if err != nil {
		return err
	}
	sessions, err := store.RecentSessions(limit)
	if err != nil {
		return err
	}
	online, err := store.Online()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Counters")
	t := newTable(w, "Counter", "Value")
	for _, c := range analytics.Counters {
		t.Append([]string{string(c), strconv.FormatUint(stats.Get(c), 10)})
	}
	t.Append([]string{"unique_users", strconv.Itoa(unique)})
	t.Render()

	fmt.Fprintf(w, "\nRecent sessions (%d)\n", len(sessions))
	t = newTable(w, "Time", "Event", "Username", "Room", "Conn", "IP", "File")
	for _, s := range sessions {
		file := ""
		if s.FileName != "" {
			file = fmt.Sprintf("%s (%d B)", s.FileName, s.FileSize)
		}
		t.Append([]string{
			s.Timestamp.Local().Format(time.DateTime),
			string(s.Type),
			s.Username,
			s.RoomID,
			shortID(s.ConnID),
			s.IP,
			file,
		})
	}
	t.Render()

	fmt.Fprintf(w, "\nOnline now (%d)\n", len(online))
	t = newTable(w, "Joined", "Username", "Room", "Conn")
	for _, u := range online {
		t.Append([]string{u.JoinedAt.Local().Format(time.DateTime), u.Username, u.RoomID, shortID(u.ConnID)})
	}
	t.Render()
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// shortID keeps the first 8 characters of a connection id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
