// Command ofdpshow is a thin wrapper around ofproto.Dump: it installs a
// small illustrative flow set into a Flowdb and prints the flowdb_show.c-
// style text dump, the way a developer would eyeball a table's contents
// while wiring up a real flow_mod source.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/contiv/ofdp/ofbuilder"
	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/openflow13"
)

func main() {
	var tableID uint
	flag.UintVar(&tableID, "table", 0, "table id to install the sample flows into")
	flag.Parse()

	if tableID > 253 {
		fmt.Fprintln(os.Stderr, "ofdpshow: table id must be 0-253")
		os.Exit(1)
	}

	db := ofproto.NewFlowdb()
	if err := installSampleFlows(db, uint8(tableID)); err != nil {
		fmt.Fprintf(os.Stderr, "ofdpshow: %v\n", err)
		os.Exit(1)
	}

	ofproto.Dump(os.Stdout, db)
}

// installSampleFlows builds two flows with ofbuilder's fluent API and
// installs them through the normal FlowAdd path, standing in for flow_mods
// a real controller connection would deliver.
func installSampleFlows(db *ofproto.Flowdb, tableID uint8) error {
	arp := ofbuilder.NewFlowModBuilder(tableID)
	arp.Match = ofbuilder.FlowMatch{
		Priority:  100,
		Ethertype: 0x0806,
	}
	arp.SetFlood()
	arpMatch := arp.GetMatchFields()
	arpInstr := arp.GetFlowInstructions()
	if err := db.FlowAdd(&ofproto.FlowModRequest{
		TableID:      tableID,
		Priority:     100,
		Matches:      arpMatch.Fields,
		Instructions: []openflow13.Instruction{arpInstr},
	}); err != nil {
		return fmt.Errorf("installing ARP flood flow: %w", err)
	}

	tcp := ofbuilder.NewFlowModBuilder(tableID)
	tcp.Match = ofbuilder.FlowMatch{
		Priority:   200,
		Ethertype:  0x0800,
		IpProto:    ofbuilder.IP_PROTO_TCP,
		TcpDstPort: 80,
	}
	tcp.SetGotoTable(tableID + 1)
	tcpMatch := tcp.GetMatchFields()
	tcpInstr := tcp.GetFlowInstructions()
	if err := db.FlowAdd(&ofproto.FlowModRequest{
		TableID:      tableID,
		Priority:     200,
		Matches:      tcpMatch.Fields,
		Instructions: []openflow13.Instruction{tcpInstr},
	}); err != nil {
		return fmt.Errorf("installing HTTP goto-table flow: %w", err)
	}

	return nil
}
