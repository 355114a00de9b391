package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	qrcode "github.com/skip2/go-qrcode"
	log "github.com/sirupsen/logrus"
)

const (
	trayTitle    = "Screen QR Scan"
	scanLabel    = "Scan QR code"
	busyLabel    = "Decoding..."
	trayIconText = "screen-qr-scan"
)

// Tray is the system tray menu of the resident.
type Tray struct {
	menu *fyne.Menu
	scan *fyne.MenuItem
	desk desktop.App
}

// NewTray installs the tray menu. It returns nil when the driver has no system tray.
func NewTray(app fyne.App, onScan, onQuit func()) *Tray {
	desk, ok := app.(desktop.App)
	if !ok {
		log.Warnf("tray: driver has no system tray")
		return nil
	}

	t := &Tray{desk: desk}
	t.scan = fyne.NewMenuItem(scanLabel, onScan)
	quit := fyne.NewMenuItem("Quit", onQuit)
	quit.IsQuit = true
	t.menu = fyne.NewMenu(trayTitle, t.scan, fyne.NewMenuItemSeparator(), quit)

	desk.SetSystemTrayMenu(t.menu)
	if icon, err := TrayIcon(); err != nil {
		log.Warnf("tray: icon: %v", err)
	} else {
		desk.SetSystemTrayIcon(icon)
	}
	return t
}

// SetBusy relabels the scan item while a decode runs. Safe from any goroutine.
func (t *Tray) SetBusy(busy bool) {
	if t == nil {
		return
	}
	fyne.Do(func() {
		if busy {
			t.scan.Label = busyLabel
		} else {
			t.scan.Label = scanLabel
		}
		t.menu.Refresh()
	})
}

// TrayIcon renders a small QR symbol as the tray icon.
func TrayIcon() (fyne.Resource, error) {
	png, err := qrcode.Encode(trayIconText, qrcode.Low, 64)
	if err != nil {
		return nil, err
	}
	return fyne.NewStaticResource("tray.png", png), nil
}
