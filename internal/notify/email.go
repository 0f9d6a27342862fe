package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"purser/internal/config"
	"purser/internal/errs"
)

// EmailNotifier delivers notifications over SMTP. Credentials come from an
// explicit config object, never from ambient process state, so tests can
// swap in a fake dialer.
type EmailNotifier struct {
	cfg  config.Email
	send func(*gomail.Message) error
}

func NewEmailNotifier(cfg config.Email) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg}
	n.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		return d.DialAndSend(m)
	}
	return n
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) SendTargetHit(_ context.Context, hit TargetHit) error {
	subject := fmt.Sprintf("[Purser] Price alert: %s", hit.Item.Title)
	body := targetHitHTML(hit)
	return n.deliver(subject, body)
}

func (n *EmailNotifier) SendDigest(_ context.Context, digest Digest) error {
	subject := fmt.Sprintf("[Purser] Daily digest for %s", digest.Date.Format("Jan 2"))
	body := digestHTML(digest)
	return n.deliver(subject, body)
}

func (n *EmailNotifier) deliver(subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := n.send(m); err != nil {
		return &errs.DeliveryError{Channel: "email", Err: err}
	}
	return nil
}

func targetHitHTML(hit TargetHit) string {
	image := ""
	if hit.Item.ImageURL != "" {
		image = fmt.Sprintf(`<div class="hero"><img src="%s" alt="" /></div>`, hit.Item.ImageURL)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8" />
<style>
  body { font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937; }
  .card { max-width: 600px; margin: 24px auto; background: #ffffff; border-radius: 12px; overflow: hidden; border: 1px solid #e5e7eb; }
  .header { background: #0f172a; color: #ffffff; padding: 16px 20px; font-size: 16px; font-weight: bold; }
  .content { padding: 20px; }
  .hero img { width: 100%%; max-width: 520px; display: block; margin: 0 auto 16px; border-radius: 8px; }
  .price { font-size: 26px; font-weight: bold; color: #16a34a; margin: 8px 0 12px; }
  .cta { display: inline-block; padding: 12px 20px; background: #22c55e; color: #fff; text-decoration: none; border-radius: 8px; font-weight: bold; }
  .footer { margin-top: 20px; font-size: 12px; color: #6b7280; }
</style>
</head>
<body>
  <div class="card">
    <div class="header">[Purser] Price alert</div>
    <div class="content">
      %s
      <div class="price">%s</div>
      <div>%s</div>
      <div style="margin: 16px 0;">
        <a class="cta" href="%s" target="_blank">View listing</a>
      </div>
      <div class="footer">Target: %s on %s</div>
    </div>
  </div>
</body>
</html>`, image, hit.Price.Display(), hit.Item.Title, hit.Item.URL, hit.Target.Describe(), hit.Item.Domain)
}

func digestHTML(digest Digest) string {
	var rows strings.Builder
	for _, line := range digest.Lines {
		price := "—"
		if line.Latest != nil {
			price = line.Latest.Display()
		}
		note := ""
		switch {
		case line.TargetHit:
			note = "target hit"
		case line.PriceDrop:
			note = "price drop"
		case line.CheckFailed:
			note = "check failing"
		}
		fmt.Fprintf(&rows,
			`<tr><td style="padding:6px 10px;"><a href="%s">%s</a></td><td style="padding:6px 10px;">%s</td><td style="padding:6px 10px;color:#6b7280;">%s</td></tr>`,
			line.URL, line.Title, price, note)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <div style="max-width: 640px; margin: 0 auto; padding: 16px;">
    <h2>Purser daily digest — %s</h2>
    <p>%d items tracked, %d targets satisfied in the last day.</p>
    <table style="border-collapse: collapse; width: 100%%;">%s</table>
  </div>
</body>
</html>`, digest.Date.Format("January 2, 2006"), digest.ItemCount, digest.SatisfiedToday, rows.String())
}
