package notify

import (
	needdomain "github.com/otherscentered/platform/internal/need/domain"
)

// Template is one notification message. Tokens like {need_title} are
// replaced before send; unresolved tokens stay literal.
type Template struct {
	Subject string
	Body    string
}

var templates = map[needdomain.EffectKind]Template{
	needdomain.EffectAdminNewNeed: {
		Subject: "New Need submitted (Pending Review)",
		Body: "A new Need is awaiting review.\n\n" +
			"Title: {need_title}\n\n" +
			"Edit:\n{edit_link}\n",
	},
	needdomain.EffectNeedLive: {
		Subject: "Your need is now live on Others Centered",
		Body: "Hi,\n\n" +
			"Your need \"{need_title}\" is now live on Others Centered.\n\n" +
			"You can view it here:\n{need_link}\n\n" +
			"Helpers in your area can now see this need and reach out.\n\n" +
			"– Others Centered",
	},
	needdomain.EffectMatchedOwner: {
		Subject: "Someone has offered to help your need",
		Body: "Hi,\n\n" +
			"Someone has reached out about your need \"{need_title}\" on Others Centered.\n\n" +
			"You should receive a separate email with their message (sent anonymously).\n\n" +
			"View your need here:\n{need_link}\n\n" +
			"– Others Centered",
	},
	needdomain.EffectMatchedAdmin: {
		Subject: "A need has been matched on Others Centered",
		Body: "Need #{need_id} ({need_title}) has been matched.\n\n" +
			"Edit the need:\n{edit_link}\n",
	},
	needdomain.EffectFulfilledAdmin: {
		Subject: "A need has been fulfilled on Others Centered",
		Body: "Need #{need_id} ({need_title}) has been marked fulfilled.\n" +
			"Confirmed amount: {amount}\n\n" +
			"Edit the need:\n{edit_link}\n",
	},
	needdomain.EffectFulfilledHelper: {
		Subject: "Thank you for helping on Others Centered",
		Body: "Hi,\n\n" +
			"Thank you for helping with \"{need_title}\" on Others Centered.\n" +
			"Your generosity made a real difference.\n\n" +
			"– Others Centered",
	},
}
