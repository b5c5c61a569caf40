package render

import "shipnotify/internal/domain"

// Built-in templates used when a tenant has not saved its own for a type.
var defaults = map[domain.TemplateType]Template{
	domain.TemplateStatusUpdate: {
		Type:    domain.TemplateStatusUpdate,
		Subject: "Update on your shipment {{tracking_code}}",
		Heading: "Shipment update",
		Body: "<p>Hi {{customer_name}},</p>" +
			"<p>Your shipment {{tracking_code}} is now <strong>{{status}}</strong>.</p>" +
			"<p>Track it any time: <a href=\"{{tracking_url}}\">{{tracking_url}}</a></p>" +
			"<p>{{company_name}}</p>",
	},
	domain.TemplateOutForDelivery: {
		Type:    domain.TemplateOutForDelivery,
		Subject: "Your shipment {{tracking_code}} is out for delivery",
		Heading: "Out for delivery",
		Body: "<p>Hi {{customer_name}},</p>" +
			"<p>Your shipment {{tracking_code}} is out for delivery and should arrive today.</p>" +
			"<p>Track it here: <a href=\"{{tracking_url}}\">{{tracking_url}}</a></p>" +
			"<p>{{company_name}}</p>",
	},
	domain.TemplateDelivered: {
		Type:    domain.TemplateDelivered,
		Subject: "Your shipment {{tracking_code}} was delivered",
		Heading: "Delivered",
		Body: "<p>Hi {{customer_name}},</p>" +
			"<p>Your shipment {{tracking_code}} has been delivered.</p>" +
			"<p>Reference: {{reference_code}}</p>" +
			"<p>Thanks for shipping with {{company_name}}.</p>",
	},
	domain.TemplateException: {
		Type:    domain.TemplateException,
		Subject: "Delivery issue with shipment {{tracking_code}}",
		Heading: "Delivery exception",
		Body: "<p>Hi {{customer_name}},</p>" +
			"<p>There is a delivery issue with your shipment {{tracking_code}} (status: {{status}}).</p>" +
			"<p>Check the latest details: <a href=\"{{tracking_url}}\">{{tracking_url}}</a></p>" +
			"<p>{{company_name}}</p>",
	},
}

// Default returns the built-in template for a type. Unknown types get the
// generic status update template so dispatch always has something to send.
func Default(t domain.TemplateType) Template {
	if tpl, ok := defaults[t]; ok {
		return tpl
	}
	return defaults[domain.TemplateStatusUpdate]
}
