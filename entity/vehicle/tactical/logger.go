package tactical

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "tactical")
