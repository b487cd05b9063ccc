// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package kernel

import (
	"context"
	"sort"

	"github.com/prometheus/procfs"
)

// ProcNetDev reads counters from net/dev under a procfs mount.
type ProcNetDev struct {
	Root string
}

// NewProcNetDev returns a source reading <root>/net/dev, or /proc/net/dev if
// root is empty.
func NewProcNetDev(root string) *ProcNetDev {
	if root == "" {
		root = procfs.DefaultMountPoint
	}
	return &ProcNetDev{Root: root}
}

// Snapshot reads net/dev. Interfaces are returned sorted by name.
func (p *ProcNetDev) Snapshot(_ context.Context) (Snapshot, error) {
	fs, err := procfs.NewFS(p.Root)
	if err != nil {
		return nil, unavailable(err, SourceProcfs)
	}
	dev, err := fs.NetDev()
	if err != nil {
		return nil, unavailable(err, SourceProcfs)
	}

	names := make([]string, 0, len(dev))
	for name := range dev {
		names = append(names, name)
	}
	sort.Strings(names)

	snap := make(Snapshot, 0, len(names))
	for _, name := range names {
		snap = append(snap, fromNetDevLine(dev[name]))
	}
	return snap, nil
}

func fromNetDevLine(l procfs.NetDevLine) InterfaceCounters {
	return InterfaceCounters{
		Name:         l.Name,
		RxBytes:      l.RxBytes,
		RxPackets:    l.RxPackets,
		RxErrors:     l.RxErrors,
		RxDrops:      l.RxDropped,
		RxFIFO:       l.RxFIFO,
		RxFrame:      l.RxFrame,
		RxCompressed: l.RxCompressed,
		RxMulticast:  l.RxMulticast,
		TxBytes:      l.TxBytes,
		TxPackets:    l.TxPackets,
		TxErrors:     l.TxErrors,
		TxDrops:      l.TxDropped,
		TxFIFO:       l.TxFIFO,
		TxCollisions: l.TxCollisions,
		TxCarrier:    l.TxCarrier,
		TxCompressed: l.TxCompressed,
	}
}
